package view_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
	"github.com/vasiliy-maslov/fast-pizza/internal/routes"
	"github.com/vasiliy-maslov/fast-pizza/internal/view"
)

type stubGateway struct {
	menu    []restaurant.MenuItem
	menuErr error
	orders  map[string]*restaurant.Order
}

func (s *stubGateway) GetMenu(ctx context.Context) ([]restaurant.MenuItem, error) {
	return s.menu, s.menuErr
}

func (s *stubGateway) GetOrder(ctx context.Context, id string) (*restaurant.Order, error) {
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, restaurant.ErrOrderNotFound
}

func (s *stubGateway) CreateOrder(ctx context.Context, newOrder *restaurant.NewOrder) (*restaurant.Order, error) {
	return &restaurant.Order{ID: "NEW1"}, nil
}

func navigate(t *testing.T, gateway *stubGateway, location string) router.State {
	t.Helper()

	table, err := routes.New(routes.Deps{Gateway: gateway, Carts: cart.NewMemoryStore()})
	require.NoError(t, err)

	state, err := router.NewEngine(table, "s1").Navigate(context.Background(), location)
	require.NoError(t, err)
	return state
}

func render(t *testing.T, page view.Page) *httptest.ResponseRecorder {
	t.Helper()

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, renderer.Render(rec, page))
	return rec
}

func TestRender_Menu(t *testing.T) {
	state := navigate(t, &stubGateway{menu: []restaurant.MenuItem{
		{ID: 1, Name: "Margherita", UnitPrice: 8, Ingredients: []string{"tomato", "mozzarella"}},
		{ID: 2, Name: "Diavola", UnitPrice: 12, SoldOut: true},
	}}, "/menu")

	rec := render(t, view.Page{State: state})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Margherita")
	assert.Contains(t, body, "€8.00")
	assert.Contains(t, body, "tomato, mozzarella")
	assert.Contains(t, body, "Sold out")
	assert.Contains(t, body, "Fast React Pizza Co.", "layout chrome is rendered")
}

func TestRender_OrderNotFound(t *testing.T) {
	state := navigate(t, &stubGateway{}, "/order/999")

	var c cart.Cart
	require.NoError(t, c.Add(cart.Item{PizzaID: 1, Name: "Margherita", Quantity: 2, UnitPrice: 8}))

	rec := render(t, view.Page{State: state, Cart: c})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Not found")
	assert.Contains(t, body, "Couldn&#39;t find order #999")
	assert.NotContains(t, body, "Something went wrong")
	assert.Contains(t, body, `action="/search"`, "header survives the error")
	assert.Contains(t, body, "2 pizzas", "cart summary survives the error")
}

func TestRender_GenericFailure(t *testing.T) {
	state := navigate(t, &stubGateway{menuErr: &restaurant.APIError{Op: "get menu", StatusCode: 500}}, "/menu")

	rec := render(t, view.Page{State: state})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Something went wrong")
	assert.Contains(t, body, "Failed getting menu")
	assert.NotContains(t, body, "<h1>Not found</h1>")
	assert.Contains(t, body, `action="/search"`)
}

func TestRender_UnknownPageInLayoutOutlet(t *testing.T) {
	state := navigate(t, &stubGateway{}, "/pasta")

	rec := render(t, view.Page{State: state})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Not found")
	assert.Contains(t, body, `class="header"`)
}

func TestRender_Order(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	eta := now.Add(25 * time.Minute)
	state := navigate(t, &stubGateway{orders: map[string]*restaurant.Order{
		"ABC": {
			ID:                "ABC",
			Status:            restaurant.StatusPreparing,
			Priority:          true,
			OrderPrice:        16,
			PriorityPrice:     3.2,
			EstimatedDelivery: &eta,
			Cart:              []restaurant.OrderItem{{PizzaID: 1, Name: "Margherita", Quantity: 2, UnitPrice: 8, TotalPrice: 16}},
		},
	}}, "/order/ABC")

	rec := render(t, view.Page{State: state, Now: now})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Order #ABC status")
	assert.Contains(t, body, "preparing order")
	assert.Contains(t, body, "Priority")
	assert.Contains(t, body, "Only 25 minutes left")
	assert.Contains(t, body, "€19.20")
}

func TestRender_OrderFormErrors(t *testing.T) {
	table, err := routes.New(routes.Deps{Gateway: &stubGateway{}, Carts: cart.NewMemoryStore()})
	require.NoError(t, err)

	state, err := router.NewEngine(table, "s1").Submit(context.Background(), "/order/new", url.Values{
		"customer": {"Ann <script>"},
		"phone":    {""},
		"address":  {"1 Pizza Street"},
	})
	require.NoError(t, err)

	rec := render(t, view.Page{State: state})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please give us your correct phone number")
	assert.Contains(t, body, "Your cart is empty")
	assert.Contains(t, body, `value="1 Pizza Street"`)
	assert.NotContains(t, body, "<script>")
}
