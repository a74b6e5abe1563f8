package model

import (
	"fmt"
	"math"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// orderFlow is the forward path of an order. Cancelled sits outside it.
var orderFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

// OrderStatuses lists every status in display order.
func OrderStatuses() []OrderStatus {
	return append(append([]OrderStatus(nil), orderFlow...), OrderStatusCancelled)
}

func (s OrderStatus) Valid() bool {
	return s == OrderStatusCancelled || s.flowIndex() >= 0
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// NextStatuses returns the statuses an order in s may be moved to: any
// later step of the forward path, plus cancelled while not terminal.
// Terminal and unknown statuses have no successors.
func (s OrderStatus) NextStatuses() []OrderStatus {
	idx := s.flowIndex()
	if idx < 0 || s.Terminal() {
		return nil
	}
	next := make([]OrderStatus, 0, len(orderFlow)-idx)
	next = append(next, orderFlow[idx+1:]...)
	return append(next, OrderStatusCancelled)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range s.NextStatuses() {
		if candidate == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error when next is not legal.
func (s OrderStatus) ValidateTransition(next OrderStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown order status %q", next)
	}
	if s.CanTransitionTo(next) {
		return nil
	}
	if s.Terminal() {
		return fmt.Errorf("order is %s and can no longer change status", s)
	}
	return fmt.Errorf("order cannot move from %s to %s", s, next)
}

func (s OrderStatus) flowIndex() int {
	for i, step := range orderFlow {
		if step == s {
			return i
		}
	}
	return -1
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"orderNumber"`
	UserID          string        `json:"userId"`
	User            *User         `json:"user,omitempty"`
	Status          OrderStatus   `json:"status"`
	TotalAmount     Amount        `json:"totalAmount"`
	ShippingAddress *Address      `json:"shippingAddress,omitempty"`
	BillingAddress  *Address      `json:"billingAddress,omitempty"`
	PaymentMethod   *string       `json:"paymentMethod,omitempty"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	Notes           *string       `json:"notes,omitempty"`
	Items           []OrderItem   `json:"items,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// ItemsTotal sums the server-computed item subtotals. It is an advisory
// cross-check only; TotalAmount stays authoritative.
func (o *Order) ItemsTotal() Amount {
	var sum float64
	for _, item := range o.Items {
		sum += item.Subtotal.Float64()
	}
	return Amount(sum)
}

// TotalMismatch reports whether the advisory total differs from
// TotalAmount by at least a cent. Orders without items never mismatch.
func (o *Order) TotalMismatch() bool {
	if len(o.Items) == 0 {
		return false
	}
	return math.Abs(o.ItemsTotal().Float64()-o.TotalAmount.Float64()) >= 0.005
}

type OrderItem struct {
	ID        string   `json:"id"`
	OrderID   string   `json:"orderId"`
	ProductID string   `json:"productId"`
	Product   *Product `json:"product,omitempty"`
	Quantity  Count    `json:"quantity"`
	Price     Amount   `json:"price"`
	Subtotal  Amount   `json:"subtotal"`
}

type OrderItemInput struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type OrderInput struct {
	Items           []OrderItemInput `json:"items"`
	ShippingAddress *Address         `json:"shippingAddress,omitempty"`
	PaymentMethod   *string          `json:"paymentMethod,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

type OrderStatusUpdate struct {
	Status OrderStatus `json:"status"`
}
