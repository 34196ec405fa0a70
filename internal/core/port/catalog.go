package port

import (
	"context"

	"github.com/mbarulin/ordersvc/internal/core/domain"
)

type CatalogClient interface {
	// ValidateProducts resolves the given ids in one batched call.
	// Every returned snapshot existed in the catalog at call time.
	ValidateProducts(ctx context.Context, productIDs []string) ([]domain.ProductSnapshot, error)
}
