package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

type NavigationStatus int

const (
	Idle NavigationStatus = iota
	Loading
	Submitting
)

func (s NavigationStatus) String() string {
	switch s {
	case Loading:
		return "loading"
	case Submitting:
		return "submitting"
	default:
		return "idle"
	}
}

// State is what the engine currently shows. While a navigation is pending it keeps the
// previous location, matches and data, with Navigation and PendingLocation set.
type State struct {
	Location        string
	Matches         []Match
	Navigation      NavigationStatus
	PendingLocation string
	// Err is rendered by the match at index Boundary; -1 means no route caught it.
	Err        error
	Boundary   int
	ActionData any
}

func (s State) Pending() bool {
	return s.Navigation != Idle
}

// LoaderData returns the data loaded for the given route in the current chain.
func (s State) LoaderData(routeID string) (any, bool) {
	for _, m := range s.Matches {
		if m.Route.ID == routeID {
			return m.Data, m.Data != nil
		}
	}
	return nil, false
}

func (s State) clone() State {
	s.Matches = slices.Clone(s.Matches)
	return s
}

// Engine runs navigations for one browser session. Only the latest navigation may
// change its state.
type Engine struct {
	table   *Table
	session string

	seq atomic.Uint64

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	redirected string
}

func NewEngine(table *Table, session string) *Engine {
	return &Engine{
		table:   table,
		session: session,
		state:   State{Boundary: -1},
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.clone()
}

// Navigate resolves location and runs the loaders of the segments it enters.
func (e *Engine) Navigate(ctx context.Context, location string) (State, error) {
	u, err := url.Parse(location)
	if err != nil {
		return State{}, NewError(http.StatusBadRequest, "Malformed address", err)
	}

	id, navCtx, prev := e.begin(ctx, Loading, location)

	next := e.resolve(navCtx, prev, u, false)

	return e.commit(ctx, id, next)
}

// Submit runs the action of the route matching location. Field errors come back as
// State.ActionData, a redirect is followed within the same navigation. When a newer
// navigation supersedes a redirecting submission, the returned State carries only the
// redirect target next to ErrSuperseded.
func (e *Engine) Submit(ctx context.Context, location string, form url.Values) (State, error) {
	u, err := url.Parse(location)
	if err != nil {
		return State{}, NewError(http.StatusBadRequest, "Malformed address", err)
	}

	id, navCtx, prev := e.begin(ctx, Submitting, location)

	matches, err := e.table.Match(u.EscapedPath())
	if err != nil {
		return e.commit(ctx, id, e.settle(navCtx, prev, u, matches, len(matches), err, false))
	}

	leaf := matches[len(matches)-1]
	if leaf.Route.Action == nil {
		err := NewError(http.StatusMethodNotAllowed, fmt.Sprintf("No action for %s", leaf.Pathname), nil)
		return e.commit(ctx, id, e.settle(navCtx, prev, u, matches, len(matches)-1, err, false))
	}

	// Actions run on the caller's context: a newer navigation discards the result but
	// does not abort a mutation already sent to the restaurant.
	res, err := leaf.Route.Action(ctx, Submission{
		Args: Args{Params: leaf.Params, Session: e.session, URL: u},
		Form: form,
	})
	if err != nil {
		log.Debug().Err(err).Str("session", e.session).Str("route", leaf.Route.ID).Msg("action failed")
		return e.commit(ctx, id, e.settle(navCtx, prev, u, matches, len(matches)-1, err, false))
	}

	if res.Redirect != "" {
		target, err := u.Parse(res.Redirect)
		if err != nil {
			err = NewError(http.StatusInternalServerError, "Bad redirect", err)
			return e.commit(ctx, id, e.settle(navCtx, prev, u, matches, len(matches)-1, err, false))
		}
		e.pending(id, Loading, target.RequestURI())

		next := e.resolve(navCtx, prev, target, true)
		state, err := e.commit(ctx, id, next)
		switch {
		case errors.Is(err, ErrSuperseded):
			// The mutation is done; the caller still gets where it pointed.
			return State{Location: target.RequestURI()}, err
		case err == nil && state.Err == nil:
			e.markRedirect(id, state.Location)
		}
		return state, err
	}

	next := e.resolve(navCtx, prev, u, true)
	next.ActionData = res.Data
	return e.commit(ctx, id, next)
}

// TakeRedirect hands out the state produced by an action redirect to location exactly
// once, so the follow-up request renders it without loading again. Redirects whose
// target failed to load are not kept; the follow-up request loads again.
func (e *Engine) TakeRedirect(location string) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.redirected == "" || e.redirected != location || e.state.Pending() {
		return State{}, false
	}
	e.redirected = ""
	return e.state.clone(), true
}

func (e *Engine) begin(ctx context.Context, status NavigationStatus, location string) (uint64, context.Context, State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	navCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	id := e.seq.Inc()
	e.redirected = ""
	e.state.Navigation = status
	e.state.PendingLocation = location

	log.Debug().Str("session", e.session).Uint64("nav", id).Str("location", location).Stringer("status", status).Msg("navigation started")

	return id, navCtx, e.state.clone()
}

func (e *Engine) pending(id uint64, status NavigationStatus, location string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq.Load() != id {
		return
	}
	e.state.Navigation = status
	e.state.PendingLocation = location
}

func (e *Engine) markRedirect(id uint64, location string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq.Load() == id {
		e.redirected = location
	}
}

func (e *Engine) commit(ctx context.Context, id uint64, next State) (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seq.Load() != id {
		log.Debug().Str("session", e.session).Uint64("nav", id).Msg("navigation superseded")
		return State{}, ErrSuperseded
	}

	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if err := ctx.Err(); err != nil {
		e.state.Navigation = Idle
		e.state.PendingLocation = ""
		return e.state.clone(), err
	}

	e.state = next
	return e.state.clone(), nil
}

// resolve matches u and loads the chain. revalidate reruns every loader instead of
// reusing ancestors that are already resolved.
func (e *Engine) resolve(ctx context.Context, prev State, u *url.URL, revalidate bool) State {
	matches, err := e.table.Match(u.EscapedPath())
	if err != nil {
		return e.settle(ctx, prev, u, matches, len(matches), err, revalidate)
	}

	fresh := len(matches) - 1
	if revalidate {
		fresh = 0
	}
	failed, err := e.load(ctx, prev, u, matches, fresh)
	if err != nil {
		return e.settle(ctx, prev, u, matches, failed, err, revalidate)
	}

	return State{Location: u.RequestURI(), Matches: matches, Boundary: -1}
}

// settle builds the state for an error raised at matches[failed] (len(matches) when no
// route matched): the nearest route at or above it with an error view catches it and
// everything below is dropped.
func (e *Engine) settle(ctx context.Context, prev State, u *url.URL, matches []Match, failed int, cause error, revalidate bool) State {
	boundary := -1
	for i := min(failed, len(matches)-1); i >= 0; i-- {
		if matches[i].Route.ErrorView != "" {
			boundary = i
			break
		}
	}

	kept := matches[:boundary+1]
	// Routes above the failure still render around the error, so they need their data.
	if above := min(boundary+1, failed); above > 0 {
		fresh := above
		if revalidate {
			fresh = 0
		}
		if _, err := e.load(ctx, prev, u, kept[:above], fresh); err != nil {
			log.Warn().Err(err).Str("session", e.session).Msg("loading routes around an error boundary failed")
		}
	}

	log.Debug().Err(cause).Str("session", e.session).Str("location", u.RequestURI()).Int("boundary", boundary).Msg("navigation failed")

	return State{Location: u.RequestURI(), Matches: kept, Err: cause, Boundary: boundary}
}

// load runs the loaders of the matches that have no data yet, concurrently, and
// stores the results in place. Matches before fresh reuse what prev resolved for them.
// It returns the index of the shallowest failure.
func (e *Engine) load(ctx context.Context, prev State, u *url.URL, matches []Match, fresh int) (int, error) {
	errs := make([]error, len(matches))

	g, gctx := errgroup.WithContext(ctx)
	for i := range matches {
		m := &matches[i]
		if m.Route.Loader == nil || m.Data != nil {
			continue
		}
		if i < fresh && reusable(prev, i, *m) {
			m.Data = prev.Matches[i].Data
			continue
		}

		g.Go(func() error {
			data, err := m.Route.Loader(gctx, Args{Params: m.Params, Session: e.session, URL: u})
			if err != nil {
				errs[i] = err
				return err
			}
			m.Data = data
			return nil
		})
	}

	if err := g.Wait(); err == nil {
		return -1, nil
	}

	// Siblings cancelled by the first failure are not the cause.
	failed := slices.IndexFunc(errs, func(err error) bool {
		return err != nil && !errors.Is(err, context.Canceled)
	})
	if failed == -1 {
		failed = slices.IndexFunc(errs, func(err error) bool { return err != nil })
	}
	return failed, errs[failed]
}

// reusable reports whether prev already resolved the same segment without error.
func reusable(prev State, i int, m Match) bool {
	if i >= len(prev.Matches) {
		return false
	}
	if prev.Err != nil && prev.Boundary <= i {
		return false
	}

	p := prev.Matches[i]
	return p.Route == m.Route && p.Pathname == m.Pathname && p.Data != nil
}
