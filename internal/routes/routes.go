// Package routes declares the storefront's route table.
package routes

import (
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/menu"
	"github.com/vasiliy-maslov/fast-pizza/internal/order"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
)

const (
	Root     = "root"
	Home     = "home"
	Menu     = "menu"
	Cart     = "cart"
	NewOrder = "order-new"
	Order    = "order"
)

// View names, resolved to templates by the view package.
const (
	ViewLayout   = "layout"
	ViewHome     = "home"
	ViewMenu     = "menu"
	ViewCart     = "cart"
	ViewNewOrder = "order_new"
	ViewOrder    = "order"
	ViewError    = "error"
)

type Deps struct {
	Gateway restaurant.Gateway
	Carts   cart.Store
}

// New builds the table: five pages under one layout. Every page but home has its own
// error view; the layout's catches the rest.
func New(deps Deps) (*router.Table, error) {
	placeOrder := order.NewAction(deps.Gateway, deps.Carts)

	return router.NewTable(&router.Route{
		ID:        Root,
		View:      ViewLayout,
		ErrorView: ViewError,
		Children: []*router.Route{
			{
				ID:   Home,
				Path: "/",
				View: ViewHome,
			},
			{
				ID:        Menu,
				Path:      "/menu",
				View:      ViewMenu,
				Loader:    menu.Loader(deps.Gateway),
				ErrorView: ViewError,
			},
			{
				ID:        Cart,
				Path:      "/cart",
				View:      ViewCart,
				ErrorView: ViewError,
			},
			{
				ID:        NewOrder,
				Path:      "/order/new",
				View:      ViewNewOrder,
				Action:    placeOrder.Place,
				ErrorView: ViewError,
			},
			{
				ID:        Order,
				Path:      "/order/:" + order.ParamOrderID,
				View:      ViewOrder,
				Loader:    order.Loader(deps.Gateway),
				ErrorView: ViewError,
			},
		},
	})
}
