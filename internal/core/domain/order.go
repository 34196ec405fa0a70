package domain

import (
	"time"

	"github.com/govalues/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusPaid      OrderStatus = "PAID"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCancelled, OrderStatusDelivered, OrderStatusPaid:
		return true
	}
	return false
}

// Order is the aggregate root. The repository is the single source of truth,
// the orchestrator only reads it and requests mutations.
type Order struct {
	ID              string
	Status          OrderStatus
	TotalAmount     decimal.Decimal
	TotalItems      int32
	Paid            bool
	PaidAt          *time.Time
	PaymentChargeID string
	CreatedAt       time.Time
	Items           []OrderItem
	Receipt         *OrderReceipt
}

// OrderItem carries the price snapshot taken at creation time.
// Name is joined from the catalog at read time and never persisted.
type OrderItem struct {
	ProductID string
	Quantity  int32
	Price     decimal.Decimal
	Name      string
}

type OrderReceipt struct {
	OrderID    string
	ReceiptURL string
	CreatedAt  time.Time
}

// NewOrderItem is a creation request line before pricing.
type NewOrderItem struct {
	ProductID string
	Quantity  int32
}

type OrderPage struct {
	Data     []*Order
	Total    int64
	Page     int
	LastPage int
}
