package restaurant

import (
	"time"
)

type OrderStatus string

const (
	StatusPreparing  OrderStatus = "preparing"
	StatusDelivering OrderStatus = "delivering"
	StatusDelivered  OrderStatus = "delivered"
)

func (os OrderStatus) String() string {
	return string(os)
}

// MenuItem is a pizza as served by the restaurant API. SoldOut is the availability flag.
type MenuItem struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	UnitPrice     float64  `json:"unitPrice"`
	ImageURL      string   `json:"imageUrl"`
	Ingredients   []string `json:"ingredients"`
	SoldOut       bool     `json:"soldOut"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
}

// Price is the price a customer pays right now.
func (m MenuItem) Price() float64 {
	if m.DiscountPrice != nil {
		return *m.DiscountPrice
	}
	return m.UnitPrice
}

type OrderItem struct {
	PizzaID    int     `json:"pizzaId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

type Order struct {
	ID                string      `json:"id"`
	Customer          string      `json:"customer"`
	Phone             string      `json:"phone"`
	Address           string      `json:"address"`
	Priority          bool        `json:"priority"`
	Status            OrderStatus `json:"status"`
	Cart              []OrderItem `json:"cart"`
	OrderPrice        float64     `json:"orderPrice"`
	PriorityPrice     float64     `json:"priorityPrice"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty"`
}

// Total is what the customer pays on delivery.
func (o Order) Total() float64 {
	return o.OrderPrice + o.PriorityPrice
}

// MinutesLeft returns the whole minutes until the estimated delivery, or 0 when it
// has passed or is unknown.
func (o Order) MinutesLeft(now time.Time) int {
	if o.EstimatedDelivery == nil {
		return 0
	}
	left := o.EstimatedDelivery.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left.Round(time.Minute) / time.Minute)
}

// NewOrder is the payload sent to the restaurant API to place an order.
type NewOrder struct {
	Customer string      `json:"customer"`
	Phone    string      `json:"phone"`
	Address  string      `json:"address"`
	Priority bool        `json:"priority"`
	Cart     []OrderItem `json:"cart"`
}
