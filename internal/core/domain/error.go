package domain

import (
	"errors"
)

var (
	ErrInternal = errors.New("internal error")

	// * Data errors.
	ErrDataNotFound    = errors.New("data not found")
	ErrNoUpdatedData   = errors.New("no data to update")
	ErrConflictingData = errors.New("data conflicts with existing data in unique column")

	// * Communication errors.
	ErrBadRequest         = errors.New("error parsing request")
	ErrServiceUnavailable = errors.New("downstream service unavailable")

	// * Business errors.
	ErrOrderItemsEmpty        = errors.New("order must have at least one item")
	ErrOrderItemBadQuantity   = errors.New("order item quantity must be positive")
	ErrProductNotFound        = errors.New("product not found in catalog")
	ErrOrderStatusUnknown     = errors.New("unknown order status")
	ErrStatusChangeNotAllowed = errors.New("status change not allowed")
	ErrPaymentChargeMismatch  = errors.New("payment charge id conflicts with recorded charge")
)
