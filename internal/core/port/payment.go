package port

import (
	"context"

	"github.com/mbarulin/ordersvc/internal/core/domain"
)

type PaymentClient interface {
	// CreateSession requests a hosted checkout for the order. One-shot
	// request/reply: no session state is kept on this side.
	CreateSession(ctx context.Context, order *domain.Order) (*domain.PaymentSession, error)
}
