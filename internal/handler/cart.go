package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/menu"
)

var (
	ErrUnknownPizza = errors.New("pizza is not on the menu")
	ErrSoldOut      = errors.New("pizza is sold out")
)

// CartHandler edits the session cart and sends the browser back where it came from.
type CartHandler struct {
	sessions *Sessions
	carts    cart.Store
	menu     menu.Fetcher
}

func NewCartHandler(sessions *Sessions, carts cart.Store, fetcher menu.Fetcher) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		carts:    carts,
		menu:     fetcher,
	}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Post("/cart/items", h.AddItem)
	r.Post("/cart/items/{pizzaId}/increase", h.changeQuantity(1))
	r.Post("/cart/items/{pizzaId}/decrease", h.changeQuantity(-1))
	r.Post("/cart/items/{pizzaId}/delete", h.DeleteItem)
	r.Post("/cart/clear", h.Clear)
}

// AddItem puts one pizza (or quantity pizzas) from the menu into the cart, at the
// current menu price.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	pizzaID, err := strconv.Atoi(r.PostForm.Get("pizzaId"))
	if err != nil {
		http.Error(w, "pizzaId must be a number", http.StatusBadRequest)
		return
	}
	quantity := 1
	if raw := r.PostForm.Get("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "quantity must be a number", http.StatusBadRequest)
			return
		}
	}

	items, err := h.menu.GetMenu(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch menu for cart")
		http.Error(w, "failed getting menu", http.StatusBadGateway)
		return
	}

	pizza, ok := menu.Find(items, pizzaID)
	switch {
	case !ok:
		err = fmt.Errorf("add pizza %d: %w", pizzaID, ErrUnknownPizza)
	case pizza.SoldOut:
		err = fmt.Errorf("add pizza %d: %w", pizzaID, ErrSoldOut)
	}
	if err != nil {
		http.Error(w, err.Error(), mapErrorToStatusCode(err))
		return
	}

	h.update(w, r, func(c *cart.Cart) error {
		return c.Add(cart.Item{
			PizzaID:   pizza.ID,
			Name:      pizza.Name,
			Quantity:  quantity,
			UnitPrice: pizza.Price(),
		})
	})
}

func (h *CartHandler) changeQuantity(delta int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pizzaID, ok := pizzaParam(w, r)
		if !ok {
			return
		}
		h.update(w, r, func(c *cart.Cart) error {
			c.ChangeQuantity(pizzaID, delta)
			return nil
		})
	}
}

func (h *CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	pizzaID, ok := pizzaParam(w, r)
	if !ok {
		return
	}
	h.update(w, r, func(c *cart.Cart) error {
		c.Remove(pizzaID)
		return nil
	})
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart) error) {
	sessionID, _, err := h.sessions.Resolve(w, r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start session")
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}

	if err := h.carts.Update(r.Context(), sessionID, fn); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("Failed to update cart")
		http.Error(w, "failed to update cart", mapErrorToStatusCode(err))
		return
	}

	http.Redirect(w, r, back(r, "/cart"), http.StatusSeeOther)
}

func pizzaParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	pizzaID, err := strconv.Atoi(chi.URLParam(r, "pizzaId"))
	if err != nil {
		http.Error(w, "pizzaId must be a number", http.StatusBadRequest)
		return 0, false
	}
	return pizzaID, true
}

// back returns the same-site page the request came from, or fallback.
func back(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" {
		return fallback
	}
	if ref.Host != "" && ref.Host != r.Host {
		return fallback
	}
	return ref.RequestURI()
}
