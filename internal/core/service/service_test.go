package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/govalues/decimal"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"github.com/mbarulin/ordersvc/internal/core/port/mock"
	"github.com/mbarulin/ordersvc/internal/core/service"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type prepareMocks func(t *testing.T, repo *mock.MockRepository,
	catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient)

func newService(t *testing.T, mockCtrl *gomock.Controller, prepare prepareMocks) *service.Service {
	t.Helper()

	logger, _ := zap.NewProduction()

	repo := mock.NewMockRepository(mockCtrl)
	catalog := mock.NewMockCatalogClient(mockCtrl)
	payment := mock.NewMockPaymentClient(mockCtrl)
	if prepare != nil {
		prepare(t, repo, catalog, payment)
	}

	s, err := service.NewService(repo, catalog, payment, logger)
	assert.NoError(t, err)

	return s
}

func snapshot(id, name, price string) domain.ProductSnapshot {
	return domain.ProductSnapshot{ID: id, Name: name, Price: decimal.MustParse(price)}
}

func TestService_CreateOrder(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type createOrderTest struct {
		name      string
		items     []domain.NewOrderItem
		mock      prepareMocks
		expError  error
		expTotal  string
		expItems  int32
	}

	tests := []createOrderTest{
		{
			name: "Create good order",
			items: []domain.NewOrderItem{
				{ProductID: "p1", Quantity: 2},
				{ProductID: "p5", Quantity: 1},
			},
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1", "p5"}).
					Times(1).
					Return([]domain.ProductSnapshot{
						snapshot("p1", "Keyboard", "50"),
						snapshot("p5", "Monitor", "100"),
					}, nil)
				repo.EXPECT().
					CreateOrder(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, order *domain.Order) (*domain.Order, error) {
						assert.NotEmpty(t, order.ID)
						assert.Equal(t, domain.OrderStatusPending, order.Status)
						assert.Equal(t, "200", order.TotalAmount.String())
						assert.Equal(t, int32(3), order.TotalItems)
						assert.Len(t, order.Items, 2)
						assert.Equal(t, "50", order.Items[0].Price.String())
						assert.Equal(t, "Keyboard", order.Items[0].Name)
						return order, nil
					})
			},
			expError: nil,
			expTotal: "200",
			expItems: 3,
		},
		{
			name: "Repeated product id priced per line, one lookup",
			items: []domain.NewOrderItem{
				{ProductID: "p1", Quantity: 1},
				{ProductID: "p1", Quantity: 2},
			},
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1"}).
					Times(1).
					Return([]domain.ProductSnapshot{snapshot("p1", "Keyboard", "50")}, nil)
				repo.EXPECT().
					CreateOrder(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, order *domain.Order) (*domain.Order, error) {
						return order, nil
					})
			},
			expError: nil,
			expTotal: "150",
			expItems: 3,
		},
		{
			name:     "Empty item list",
			items:    []domain.NewOrderItem{},
			mock:     nil,
			expError: domain.ErrOrderItemsEmpty,
		},
		{
			name:     "Non-positive quantity",
			items:    []domain.NewOrderItem{{ProductID: "p1", Quantity: 0}},
			mock:     nil,
			expError: domain.ErrOrderItemBadQuantity,
		},
		{
			name: "Product missing from catalog, no writes",
			items: []domain.NewOrderItem{
				{ProductID: "p1", Quantity: 2},
				{ProductID: "p9", Quantity: 1},
			},
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1", "p9"}).
					Return([]domain.ProductSnapshot{snapshot("p1", "Keyboard", "50")}, nil)
				// no CreateOrder expectation: the store must not be touched
			},
			expError: domain.ErrProductNotFound,
		},
		{
			name:  "Catalog unavailable",
			items: []domain.NewOrderItem{{ProductID: "p1", Quantity: 1}},
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1"}).
					Return(nil, domain.ErrServiceUnavailable)
			},
			expError: domain.ErrServiceUnavailable,
		},
		{
			name:  "Store failure",
			items: []domain.NewOrderItem{{ProductID: "p1", Quantity: 1}},
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1"}).
					Return([]domain.ProductSnapshot{snapshot("p1", "Keyboard", "50")}, nil)
				repo.EXPECT().
					CreateOrder(gomock.Any(), gomock.Any()).
					Return(nil, domain.ErrConflictingData)
			},
			expError: domain.ErrInternal,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.CreateOrder(context.Background(), test.items)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, test.expTotal, result.TotalAmount.String())
			assert.Equal(t, test.expItems, result.TotalItems)
		})
	}
}

func TestService_GetOrder(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	storedOrder := func() *domain.Order {
		return &domain.Order{
			ID:          "o-1",
			Status:      domain.OrderStatusPending,
			TotalAmount: decimal.MustParse("200"),
			TotalItems:  3,
			CreatedAt:   time.Now(),
			Items: []domain.OrderItem{
				{ProductID: "p1", Quantity: 2, Price: decimal.MustParse("50")},
				{ProductID: "p5", Quantity: 1, Price: decimal.MustParse("100")},
			},
		}
	}

	type getOrderTest struct {
		name     string
		orderID  string
		mock     prepareMocks
		expError error
	}

	tests := []getOrderTest{
		{
			name:    "Get enriched order",
			orderID: "o-1",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").Return(storedOrder(), nil)
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1", "p5"}).
					Times(1).
					Return([]domain.ProductSnapshot{
						snapshot("p1", "Keyboard", "55"),
						snapshot("p5", "Monitor", "110"),
					}, nil)
			},
			expError: nil,
		},
		{
			name:    "Order not found",
			orderID: "missing",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "missing").
					Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrDataNotFound,
		},
		{
			name:    "Catalog unreachable fails the read",
			orderID: "o-1",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").Return(storedOrder(), nil)
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1", "p5"}).
					Return(nil, domain.ErrServiceUnavailable)
			},
			expError: domain.ErrServiceUnavailable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.GetOrder(context.Background(), test.orderID)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, "Keyboard", result.Items[0].Name)
			assert.Equal(t, "Monitor", result.Items[1].Name)
			// stored snapshot prices survive a later catalog price change
			assert.Equal(t, "50", result.Items[0].Price.String())
			assert.Equal(t, "200", result.TotalAmount.String())
		})
	}
}

func TestService_ListOrders(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	pageOrders := func(n int) []*domain.Order {
		list := make([]*domain.Order, 0, n)
		for i := 0; i < n; i++ {
			list = append(list, &domain.Order{Status: domain.OrderStatusPending})
		}
		return list
	}

	type listOrdersTest struct {
		name        string
		status      domain.OrderStatus
		page        int
		limit       int
		mock        prepareMocks
		expError    error
		expLen      int
		expLastPage int
	}

	tests := []listOrdersTest{
		{
			name:   "Second page of 25 pending orders",
			status: domain.OrderStatusPending,
			page:   2,
			limit:  10,
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().
					CountOrdersByStatus(gomock.Any(), domain.OrderStatusPending).
					Return(int64(25), nil)
				repo.EXPECT().
					ListOrdersByStatus(gomock.Any(), domain.OrderStatusPending, 10, 10).
					Return(pageOrders(10), nil)
			},
			expError:    nil,
			expLen:      10,
			expLastPage: 3,
		},
		{
			name:     "Unknown status",
			status:   domain.OrderStatus("SHIPPED"),
			page:     1,
			limit:    10,
			mock:     nil,
			expError: domain.ErrOrderStatusUnknown,
		},
		{
			name:     "Page below one",
			status:   domain.OrderStatusPending,
			page:     0,
			limit:    10,
			mock:     nil,
			expError: domain.ErrBadRequest,
		},
		{
			name:     "Zero page size",
			status:   domain.OrderStatusPending,
			page:     1,
			limit:    0,
			mock:     nil,
			expError: domain.ErrBadRequest,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.ListOrders(context.Background(), test.status, test.page, test.limit)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Len(t, result.Data, test.expLen)
			assert.Equal(t, int64(25), result.Total)
			assert.Equal(t, test.page, result.Page)
			assert.Equal(t, test.expLastPage, result.LastPage)
		})
	}
}

func TestService_ChangeOrderStatus(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type changeStatusTest struct {
		name      string
		orderID   string
		status    domain.OrderStatus
		mock      prepareMocks
		expError  error
		expStatus domain.OrderStatus
	}

	tests := []changeStatusTest{
		{
			name:    "Transition pending to cancelled",
			orderID: "o-1",
			status:  domain.OrderStatusCancelled,
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusPending}, nil)
				repo.EXPECT().
					UpdateOrderStatus(gomock.Any(), "o-1",
						domain.OrderStatusPending, domain.OrderStatusCancelled).
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusCancelled}, nil)
			},
			expError:  nil,
			expStatus: domain.OrderStatusCancelled,
		},
		{
			name:    "Same status is a no-op",
			orderID: "o-1",
			status:  domain.OrderStatusCancelled,
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusCancelled}, nil)
				// no UpdateOrderStatus expectation: a retry issues no write
			},
			expError:  nil,
			expStatus: domain.OrderStatusCancelled,
		},
		{
			name:     "Paid transition refused here",
			orderID:  "o-1",
			status:   domain.OrderStatusPaid,
			mock:     nil,
			expError: domain.ErrStatusChangeNotAllowed,
		},
		{
			name:     "Unknown status",
			orderID:  "o-1",
			status:   domain.OrderStatus("LOST"),
			mock:     nil,
			expError: domain.ErrOrderStatusUnknown,
		},
		{
			name:    "Order not found",
			orderID: "missing",
			status:  domain.OrderStatusCancelled,
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "missing").
					Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrDataNotFound,
		},
		{
			name:    "Lost race reported as conflict",
			orderID: "o-1",
			status:  domain.OrderStatusCancelled,
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusPending}, nil)
				repo.EXPECT().
					UpdateOrderStatus(gomock.Any(), "o-1",
						domain.OrderStatusPending, domain.OrderStatusCancelled).
					Return(nil, domain.ErrConflictingData)
			},
			expError: domain.ErrConflictingData,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.ChangeOrderStatus(context.Background(), test.orderID, test.status)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, test.expStatus, result.Status)
		})
	}
}

func TestService_RequestPaymentSession(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	storedOrder := func() *domain.Order {
		return &domain.Order{
			ID:          "o-1",
			Status:      domain.OrderStatusPending,
			TotalAmount: decimal.MustParse("100"),
			TotalItems:  2,
			Items: []domain.OrderItem{
				{ProductID: "p1", Quantity: 2, Price: decimal.MustParse("50")},
			},
		}
	}
	session := &domain.PaymentSession{
		SessionID: "sess-1",
		URL:       "https://pay.example/sess-1",
	}

	type sessionTest struct {
		name     string
		orderID  string
		mock     prepareMocks
		expError error
	}

	tests := []sessionTest{
		{
			name:    "Session for enriched order",
			orderID: "o-1",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").Return(storedOrder(), nil)
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1"}).
					Return([]domain.ProductSnapshot{snapshot("p1", "Keyboard", "50")}, nil)
				payment.EXPECT().
					CreateSession(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, order *domain.Order) (*domain.PaymentSession, error) {
						assert.Equal(t, "o-1", order.ID)
						assert.Equal(t, "Keyboard", order.Items[0].Name)
						return session, nil
					})
			},
			expError: nil,
		},
		{
			name:    "Order not found",
			orderID: "missing",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "missing").
					Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrDataNotFound,
		},
		{
			name:    "Gateway unavailable",
			orderID: "o-1",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").Return(storedOrder(), nil)
				catalog.EXPECT().
					ValidateProducts(gomock.Any(), []string{"p1"}).
					Return([]domain.ProductSnapshot{snapshot("p1", "Keyboard", "50")}, nil)
				payment.EXPECT().
					CreateSession(gomock.Any(), gomock.Any()).
					Return(nil, domain.ErrServiceUnavailable)
			},
			expError: domain.ErrServiceUnavailable,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.RequestPaymentSession(context.Background(), test.orderID)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, session, result)
		})
	}
}

func TestService_ReconcilePayment(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	confirmation := domain.PaymentConfirmation{
		OrderID:         "o-1",
		PaymentChargeID: "ch_123",
		ReceiptURL:      "https://pay.example/receipts/ch_123",
	}
	paidAt := time.Now()
	paidOrder := func(chargeID string) *domain.Order {
		return &domain.Order{
			ID:              "o-1",
			Status:          domain.OrderStatusPaid,
			Paid:            true,
			PaidAt:          &paidAt,
			PaymentChargeID: chargeID,
			Receipt: &domain.OrderReceipt{
				OrderID:    "o-1",
				ReceiptURL: confirmation.ReceiptURL,
			},
		}
	}

	type reconcileTest struct {
		name     string
		mock     prepareMocks
		expError error
	}

	tests := []reconcileTest{
		{
			name: "First confirmation marks order paid",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusPending}, nil)
				repo.EXPECT().
					MarkOrderPaid(gomock.Any(), "o-1", "ch_123", confirmation.ReceiptURL, gomock.Any()).
					Times(1).
					Return(paidOrder("ch_123"), nil)
			},
			expError: nil,
		},
		{
			name: "Redelivery with same charge is a no-op",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(paidOrder("ch_123"), nil)
				// no MarkOrderPaid expectation: nothing to apply
			},
			expError: nil,
		},
		{
			name: "Different charge on paid order is a conflict",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(paidOrder("ch_999"), nil)
			},
			expError: domain.ErrPaymentChargeMismatch,
		},
		{
			name: "Race lost to another confirmation",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusPending}, nil)
				repo.EXPECT().
					MarkOrderPaid(gomock.Any(), "o-1", "ch_123", confirmation.ReceiptURL, gomock.Any()).
					Return(nil, domain.ErrPaymentChargeMismatch)
			},
			expError: domain.ErrPaymentChargeMismatch,
		},
		{
			name: "Order not found",
			mock: func(t *testing.T, repo *mock.MockRepository,
				catalog *mock.MockCatalogClient, payment *mock.MockPaymentClient) {
				repo.EXPECT().ReadOrder(gomock.Any(), "o-1").
					Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrDataNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s := newService(t, mockCtrl, test.mock)

			result, err := s.ReconcilePayment(context.Background(), confirmation)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}
			assert.Equal(t, domain.OrderStatusPaid, result.Status)
			assert.True(t, result.Paid)
			assert.NotNil(t, result.PaidAt)
			assert.Equal(t, "ch_123", result.PaymentChargeID)
			assert.NotNil(t, result.Receipt)
		})
	}
}
