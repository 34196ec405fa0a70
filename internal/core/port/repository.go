package port

import (
	"context"
	"time"

	"github.com/mbarulin/ordersvc/internal/core/domain"
)

type Repository interface {
	// CreateOrder persists the order and all its line items atomically.
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	ReadOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrdersByStatus(ctx context.Context, status domain.OrderStatus, offset, limit int) ([]*domain.Order, error)
	CountOrdersByStatus(ctx context.Context, status domain.OrderStatus) (int64, error)

	// UpdateOrderStatus writes the new status only if the row still carries
	// the expected current one, so a stale write never clobbers a concurrent
	// paid transition.
	UpdateOrderStatus(ctx context.Context, orderID string, current, next domain.OrderStatus) (*domain.Order, error)

	// MarkOrderPaid applies status=PAID, the paid flags, the charge id and
	// the receipt in a single transaction with the order row locked.
	MarkOrderPaid(ctx context.Context, orderID, chargeID, receiptURL string, paidAt time.Time) (*domain.Order, error)
}
