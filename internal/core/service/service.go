package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"github.com/mbarulin/ordersvc/internal/core/port"
	"go.uber.org/zap"
)

// Service orchestrates the order lifecycle. It holds no state between
// requests; everything durable lives behind the repository.
type Service struct {
	repo    port.Repository
	catalog port.CatalogClient
	payment port.PaymentClient
	logger  *zap.Logger
}

func NewService(repo port.Repository, catalog port.CatalogClient,
	payment port.PaymentClient, logger *zap.Logger) (*Service, error) {
	return &Service{
		repo:    repo,
		catalog: catalog,
		payment: payment,
		logger:  logger,
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, items []domain.NewOrderItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.ErrOrderItemsEmpty
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.ErrOrderItemBadQuantity
		}
	}

	// one batched lookup per creation, whatever the item count
	ids := distinctProductIDs(items)
	products, err := s.catalog.ValidateProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]domain.ProductSnapshot, len(products))
	for _, p := range products {
		snapshots[p.ID] = p
	}

	totalAmount := decimal.Zero
	var totalItems int32
	orderItems := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := snapshots[item.ProductID]
		if !ok {
			return nil, domain.ErrProductNotFound
		}

		// price comes from the catalog snapshot, never from the caller
		lineAmount, err := product.Price.Mul(decimal.MustNew(int64(item.Quantity), 0))
		if err != nil {
			s.logger.Error("Line amount", zap.Error(err))
			return nil, domain.ErrInternal
		}
		totalAmount, err = totalAmount.Add(lineAmount)
		if err != nil {
			s.logger.Error("Total amount", zap.Error(err))
			return nil, domain.ErrInternal
		}
		totalItems += item.Quantity

		orderItems = append(orderItems, domain.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     product.Price,
			Name:      product.Name,
		})
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		Status:      domain.OrderStatusPending,
		TotalAmount: totalAmount,
		TotalItems:  totalItems,
		CreatedAt:   time.Now(),
		Items:       orderItems,
	}

	// once the insert is issued it runs to completion even if the caller
	// abandoned the request
	newOrder, err := s.repo.CreateOrder(context.WithoutCancel(ctx), order)
	if err != nil {
		s.logger.Error("Create order", zap.Error(err))
		return nil, domain.ErrInternal
	}

	return newOrder, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return nil, err
		}
		s.logger.Error("Read order", zap.Error(err))
		return nil, domain.ErrInternal
	}

	if len(order.Items) == 0 {
		return order, nil
	}

	ids := make([]string, 0, len(order.Items))
	seen := make(map[string]struct{}, len(order.Items))
	for _, item := range order.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}

	// no caching of catalog data: an unreachable catalog fails the read
	products, err := s.catalog.ValidateProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	for i := range order.Items {
		order.Items[i].Name = names[order.Items[i].ProductID]
	}

	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, status domain.OrderStatus, page, limit int) (*domain.OrderPage, error) {
	if !status.Valid() {
		return nil, domain.ErrOrderStatusUnknown
	}
	if page < 1 || limit < 1 {
		return nil, domain.ErrBadRequest
	}

	// count and window are separate reads; a concurrent insert may skew
	// LastPage by one until the next call
	total, err := s.repo.CountOrdersByStatus(ctx, status)
	if err != nil {
		s.logger.Error("Count orders", zap.Error(err))
		return nil, domain.ErrInternal
	}

	list, err := s.repo.ListOrdersByStatus(ctx, status, (page-1)*limit, limit)
	if err != nil {
		s.logger.Error("List orders", zap.Error(err))
		return nil, domain.ErrInternal
	}

	return &domain.OrderPage{
		Data:     list,
		Total:    total,
		Page:     page,
		LastPage: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *Service) ChangeOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrOrderStatusUnknown
	}
	// the paid transition carries a receipt and a charge id, only
	// reconciliation may apply it
	if status == domain.OrderStatusPaid {
		return nil, domain.ErrStatusChangeNotAllowed
	}

	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return nil, err
		}
		s.logger.Error("Read order", zap.Error(err))
		return nil, domain.ErrInternal
	}

	// idempotent: callers may retry the same change safely
	if order.Status == status {
		return order, nil
	}

	updated, err := s.repo.UpdateOrderStatus(context.WithoutCancel(ctx), orderID, order.Status, status)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) || errors.Is(err, domain.ErrConflictingData) {
			return nil, err
		}
		s.logger.Error("Update order status", zap.Error(err))
		return nil, domain.ErrInternal
	}

	return updated, nil
}

func (s *Service) RequestPaymentSession(ctx context.Context, orderID string) (*domain.PaymentSession, error) {
	// the gateway wants display names on the items, reuse the enriched read
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	session, err := s.payment.CreateSession(ctx, order)
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (s *Service) ReconcilePayment(ctx context.Context, confirmation domain.PaymentConfirmation) (*domain.Order, error) {
	order, err := s.repo.ReadOrder(ctx, confirmation.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) {
			return nil, err
		}
		s.logger.Error("Read order", zap.Error(err))
		return nil, domain.ErrInternal
	}

	if order.Status == domain.OrderStatusPaid {
		if order.PaymentChargeID == confirmation.PaymentChargeID {
			// redelivery of an already applied confirmation
			return order, nil
		}
		return nil, domain.ErrPaymentChargeMismatch
	}

	// the repository locks the order row and re-checks the status, the read
	// above is only a cheap fast path for redeliveries
	paid, err := s.repo.MarkOrderPaid(context.WithoutCancel(ctx),
		confirmation.OrderID, confirmation.PaymentChargeID, confirmation.ReceiptURL, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrDataNotFound) || errors.Is(err, domain.ErrPaymentChargeMismatch) {
			return nil, err
		}
		s.logger.Error("Mark order paid", zap.Error(err))
		return nil, domain.ErrInternal
	}

	s.logger.Info("Order paid",
		zap.String("order", confirmation.OrderID),
		zap.String("charge", confirmation.PaymentChargeID))

	return paid, nil
}

func distinctProductIDs(items []domain.NewOrderItem) []string {
	ids := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
