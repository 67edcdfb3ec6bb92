package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/order"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
	"github.com/vasiliy-maslov/fast-pizza/internal/routes"
	"github.com/vasiliy-maslov/fast-pizza/internal/view"
)

var titles = map[string]string{
	routes.Menu:     "Menu",
	routes.Cart:     "Your cart",
	routes.NewOrder: "New order",
	routes.Order:    "Your order",
}

// PageHandler turns page requests into navigations and form posts into submissions.
type PageHandler struct {
	sessions *Sessions
	carts    cart.Store
	renderer *view.Renderer
}

func NewPageHandler(sessions *Sessions, carts cart.Store, renderer *view.Renderer) *PageHandler {
	return &PageHandler{
		sessions: sessions,
		carts:    carts,
		renderer: renderer,
	}
}

func (h *PageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/search", h.SearchOrder)
	r.Get("/*", h.Navigate)
	r.Post("/*", h.Submit)
}

// SearchOrder sends the browser to the order typed into the header search box.
func (h *PageHandler) SearchOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("orderId"))
	if id == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, order.Path(id), http.StatusSeeOther)
}

func (h *PageHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	sessionID, engine, err := h.sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start session")
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	location := r.URL.RequestURI()

	state, ok := engine.TakeRedirect(location)
	if !ok {
		state, err = engine.Navigate(r.Context(), location)
		if errors.Is(err, router.ErrSuperseded) {
			// Another tab of the session moved on. This tab still gets its own page.
			log.Debug().Str("session", sessionID).Str("location", location).Msg("Navigation superseded, loading detached")
			state, err = h.sessions.Detached(sessionID).Navigate(r.Context(), location)
		}
		if err != nil {
			h.navigationFailed(w, r, err)
			return
		}
	}

	h.render(w, r, sessionID, state)
}

func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sessionID, engine, err := h.sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start session")
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	location := r.URL.RequestURI()

	state, err := engine.Submit(r.Context(), location, r.PostForm)
	if errors.Is(err, router.ErrSuperseded) {
		target := location
		if state.Location != "" {
			target = state.Location
		}
		log.Debug().Str("session", sessionID).Str("location", location).Str("target", target).Msg("Submission superseded")
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	if err != nil {
		h.navigationFailed(w, r, err)
		return
	}

	// The action redirected. Even when the target failed to load, the browser must
	// leave the form so a reload cannot submit it again.
	if state.Location != location {
		http.Redirect(w, r, state.Location, http.StatusSeeOther)
		return
	}

	h.render(w, r, sessionID, state)
}

func (h *PageHandler) navigationFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		log.Debug().Str("path", r.URL.Path).Msg("Client went away during navigation")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Navigation failed")
		http.Error(w, router.MessageOf(err), router.StatusOf(err))
	}
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, sessionID string, state router.State) {
	c, err := h.carts.Snapshot(r.Context(), sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("Failed to read cart for page")
	}

	page := view.Page{State: state, Cart: c}
	if n := len(state.Matches); n > 0 {
		page.Title = titles[state.Matches[n-1].Route.ID]
	}

	if err := h.renderer.Render(w, page); err != nil {
		log.Error().Err(err).Str("location", state.Location).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}
