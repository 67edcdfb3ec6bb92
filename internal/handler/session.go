package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
)

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type session struct {
	engine   *router.Engine
	lastSeen time.Time
}

// Sessions maps browser session cookies to their navigation engines.
type Sessions struct {
	table *router.Table
	cfg   SessionConfig
	now   func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	// OnExpire is called with the id of every swept session.
	OnExpire func(id string)
}

func NewSessions(table *router.Table, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "fast_pizza_session"
	}
	return &Sessions{
		table:    table,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Resolve returns the session of the request. A request without a valid cookie starts
// a new session and gets a detached engine; the engine is kept only once the browser
// sends the cookie back.
func (s *Sessions) Resolve(w http.ResponseWriter, r *http.Request) (string, *router.Engine, error) {
	id := s.cookieID(r)
	if id == "" {
		newID, err := uuid.NewV4()
		if err != nil {
			return "", nil, err
		}
		id = newID.String()

		http.SetCookie(w, &http.Cookie{
			Name:     s.cfg.CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		log.Debug().Str("session", id).Msg("session started")

		return id, s.Detached(id), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{engine: router.NewEngine(s.table, id)}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()

	return id, sess.engine, nil
}

// Detached returns an engine for the session that is not kept between requests.
func (s *Sessions) Detached(id string) *router.Engine {
	return router.NewEngine(s.table, id)
}

func (s *Sessions) cookieID(r *http.Request) string {
	c, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	parsed, err := uuid.FromString(c.Value)
	if err != nil {
		return ""
	}
	return parsed.String()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many went.
func (s *Sessions) Sweep() int {
	if s.cfg.TTL <= 0 {
		return 0
	}

	cutoff := s.now().Add(-s.cfg.TTL)

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	if s.OnExpire != nil {
		for _, id := range expired {
			s.OnExpire(id)
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Info().Int("expired", n).Int("active", s.Len()).Msg("Swept idle sessions")
			}
		}
	}
}
