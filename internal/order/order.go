// Package order holds the order lookup loader and the place-order action.
package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/fast-pizza/internal/cart"
	"github.com/vasiliy-maslov/fast-pizza/internal/restaurant"
	"github.com/vasiliy-maslov/fast-pizza/internal/router"
)

const ParamOrderID = "orderId"

type Gateway interface {
	GetOrder(ctx context.Context, id string) (*restaurant.Order, error)
	CreateOrder(ctx context.Context, newOrder *restaurant.NewOrder) (*restaurant.Order, error)
}

// Path returns the address of the order view for id.
func Path(id string) string {
	return "/order/" + url.PathEscape(id)
}

// Loader looks up the order named by the orderId path parameter.
func Loader(gateway Gateway) router.LoaderFunc {
	return func(ctx context.Context, args router.Args) (any, error) {
		id := args.Params[ParamOrderID]
		if id == "" {
			return nil, router.NotFound("Couldn't find an order without a number")
		}

		found, err := gateway.GetOrder(ctx, id)
		if err != nil {
			if errors.Is(err, restaurant.ErrOrderNotFound) {
				return nil, &router.RouteError{
					Status:  http.StatusNotFound,
					Message: fmt.Sprintf("Couldn't find order #%s", id),
					Err:     err,
				}
			}
			log.Error().Err(err).Str("order_id", id).Msg("Failed to fetch order")
			return nil, router.NewError(http.StatusBadGateway, fmt.Sprintf("Failed getting order #%s", id), err)
		}

		return found, nil
	}
}

type Action struct {
	gateway  Gateway
	carts    cart.Store
	validate *validator.Validate
}

func NewAction(gateway Gateway, carts cart.Store) *Action {
	return &Action{
		gateway:  gateway,
		carts:    carts,
		validate: newValidator(),
	}
}

// Place validates the submitted form, places the order with the session's cart and
// redirects to the new order. Rejected forms come back as ActionData.
func (a *Action) Place(ctx context.Context, sub router.Submission) (router.ActionResult, error) {
	form := ParseForm(sub.Form)
	errs := Validate(a.validate, form)

	snapshot, err := a.carts.Snapshot(ctx, sub.Session)
	if err != nil {
		log.Error().Err(err).Str("session", sub.Session).Msg("Failed to read cart")
		return router.ActionResult{}, router.NewError(http.StatusInternalServerError, "Failed reading your cart", err)
	}
	if snapshot.IsEmpty() {
		if errs == nil {
			errs = FormErrors{}
		}
		errs["cart"] = messages["cart"]
	}

	if errs != nil {
		return router.Data(ActionData{Values: form, Errors: errs}), nil
	}

	created, err := a.gateway.CreateOrder(ctx, newOrder(form, snapshot))
	if err != nil {
		log.Error().Err(err).Str("session", sub.Session).Msg("Failed to create order")
		return router.ActionResult{}, router.NewError(http.StatusBadGateway, "Failed creating your order", err)
	}

	if err := a.carts.Update(ctx, sub.Session, func(c *cart.Cart) error {
		c.Clear()
		return nil
	}); err != nil {
		log.Warn().Err(err).Str("session", sub.Session).Str("order_id", created.ID).Msg("Failed to clear cart after ordering")
	}

	return router.Redirect(Path(created.ID)), nil
}

func newOrder(form Form, c cart.Cart) *restaurant.NewOrder {
	items := make([]restaurant.OrderItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = restaurant.OrderItem{
			PizzaID:    it.PizzaID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice(),
		}
	}

	return &restaurant.NewOrder{
		Customer: form.Customer,
		Phone:    form.Phone,
		Address:  form.Address,
		Priority: form.Priority,
		Cart:     items,
	}
}
