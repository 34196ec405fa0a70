package port

import (
	"context"

	"github.com/mbarulin/ordersvc/internal/core/domain"
)

type Service interface {
	CreateOrder(ctx context.Context, items []domain.NewOrderItem) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) (*domain.OrderPage, error)
	ChangeOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
	RequestPaymentSession(ctx context.Context, orderID string) (*domain.PaymentSession, error)
	ReconcilePayment(ctx context.Context, confirmation domain.PaymentConfirmation) (*domain.Order, error)
}
