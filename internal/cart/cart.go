// Package cart holds the per-session shopping cart and the stores that keep it.
package cart

import (
	"context"
	"errors"
	"slices"
)

var ErrInvalidItem = errors.New("invalid cart item")

type Item struct {
	PizzaID   int     `json:"pizzaId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

func (i Item) TotalPrice() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// Cart is an ordered list of line items, one per pizza.
type Cart struct {
	Items []Item `json:"items"`
}

// Store is the process-wide cart accessor. Snapshot returns a copy that later
// mutations never change; Update applies fn atomically to one session's cart.
type Store interface {
	Snapshot(ctx context.Context, sessionID string) (Cart, error)
	Update(ctx context.Context, sessionID string, fn func(c *Cart) error) error
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) TotalQuantity() int {
	total := 0
	for _, it := range c.Items {
		total += it.Quantity
	}
	return total
}

func (c Cart) TotalPrice() float64 {
	total := 0.0
	for _, it := range c.Items {
		total += it.TotalPrice()
	}
	return total
}

// Quantity returns how many of the given pizza are in the cart.
func (c Cart) Quantity(pizzaID int) int {
	if i := c.index(pizzaID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

func (c Cart) Clone() Cart {
	return Cart{Items: slices.Clone(c.Items)}
}

// Add puts item into the cart, or raises the quantity if the pizza is already there.
func (c *Cart) Add(item Item) error {
	if item.PizzaID <= 0 || item.Quantity <= 0 || item.UnitPrice < 0 {
		return ErrInvalidItem
	}

	if i := c.index(item.PizzaID); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return nil
	}

	c.Items = append(c.Items, item)
	return nil
}

// ChangeQuantity adds delta to a line; a line that drops to zero is removed.
func (c *Cart) ChangeQuantity(pizzaID, delta int) {
	i := c.index(pizzaID)
	if i < 0 {
		return
	}

	c.Items[i].Quantity += delta
	if c.Items[i].Quantity <= 0 {
		c.Remove(pizzaID)
	}
}

func (c *Cart) Remove(pizzaID int) {
	c.Items = slices.DeleteFunc(c.Items, func(it Item) bool { return it.PizzaID == pizzaID })
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c Cart) index(pizzaID int) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.PizzaID == pizzaID })
}
