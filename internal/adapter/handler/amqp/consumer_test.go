package amqp

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"github.com/mbarulin/ordersvc/internal/core/port/mock"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

const confirmationBody = `{"order_id":"o-1","payment_charge_id":"ch_123","receipt_url":"https://pay.example/r/ch_123"}`

func TestConsumer_ProcessMessage(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type processTest struct {
		name       string
		body       string
		mock       func(service *mock.MockService)
		expAcked   int
		expNacked  int
		expRequeue bool
	}

	confirmation := domain.PaymentConfirmation{
		OrderID:         "o-1",
		PaymentChargeID: "ch_123",
		ReceiptURL:      "https://pay.example/r/ch_123",
	}

	tests := []processTest{
		{
			name: "Applied confirmation is acked",
			body: confirmationBody,
			mock: func(service *mock.MockService) {
				service.EXPECT().
					ReconcilePayment(gomock.Any(), confirmation).
					Return(&domain.Order{ID: "o-1", Status: domain.OrderStatusPaid}, nil)
			},
			expAcked: 1,
		},
		{
			name:     "Undecodable body is acked as poison",
			body:     `{"order_id":`,
			mock:     func(service *mock.MockService) {},
			expAcked: 1,
		},
		{
			name: "Charge conflict is acked, never retried",
			body: confirmationBody,
			mock: func(service *mock.MockService) {
				service.EXPECT().
					ReconcilePayment(gomock.Any(), confirmation).
					Return(nil, domain.ErrPaymentChargeMismatch)
			},
			expAcked: 1,
		},
		{
			name: "Unknown order is acked",
			body: confirmationBody,
			mock: func(service *mock.MockService) {
				service.EXPECT().
					ReconcilePayment(gomock.Any(), confirmation).
					Return(nil, domain.ErrDataNotFound)
			},
			expAcked: 1,
		},
		{
			name: "Internal failure is requeued",
			body: confirmationBody,
			mock: func(service *mock.MockService) {
				service.EXPECT().
					ReconcilePayment(gomock.Any(), confirmation).
					Return(nil, domain.ErrInternal)
			},
			expNacked:  1,
			expRequeue: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			service := mock.NewMockService(mockCtrl)
			test.mock(service)

			consumer := &Consumer{
				logger:  zap.NewNop(),
				service: service,
			}
			ack := &fakeAcknowledger{}

			consumer.processMessage(context.Background(), amqp.Delivery{
				Acknowledger: ack,
				Body:         []byte(test.body),
			})

			assert.Equal(t, test.expAcked, ack.acked)
			assert.Equal(t, test.expNacked, ack.nacked)
			assert.Equal(t, test.expRequeue, ack.requeue)
		})
	}
}
