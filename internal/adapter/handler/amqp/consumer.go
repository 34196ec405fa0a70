package amqp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mbarulin/ordersvc/internal/adapter/config"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"github.com/mbarulin/ordersvc/internal/core/port"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer feeds payment confirmations from the broker into the
// reconciliation flow. Delivery is at least once, reconciliation is
// idempotent, so redelivered messages are safe.
type Consumer struct {
	logger  *zap.Logger
	channel *amqp.Channel
	queue   string
	service port.Service
}

func NewConsumer(conn *amqp.Connection, cfg *config.Broker,
	service port.Service, log *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	_, err = ch.QueueDeclare(
		cfg.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		logger:  log,
		channel: ch,
		queue:   cfg.Queue,
		service: service,
	}, nil
}

type paymentSucceededEvent struct {
	OrderID         string `json:"order_id"`
	PaymentChargeID string `json:"payment_charge_id"`
	ReceiptURL      string `json:"receipt_url"`
}

func (c *Consumer) Start(ctx context.Context) error {
	messages, err := c.channel.Consume(
		c.queue,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for message := range messages {
			c.processMessage(ctx, message)
		}
	}()

	return nil
}

func (c *Consumer) processMessage(ctx context.Context, message amqp.Delivery) {
	var event paymentSucceededEvent
	if err := json.Unmarshal(message.Body, &event); err != nil {
		c.logger.Error("undecodable payment confirmation", zap.Error(err))
		_ = message.Ack(false)
		return
	}

	_, err := c.service.ReconcilePayment(ctx, domain.PaymentConfirmation{
		OrderID:         event.OrderID,
		PaymentChargeID: event.PaymentChargeID,
		ReceiptURL:      event.ReceiptURL,
	})

	switch {
	case err == nil:
		_ = message.Ack(false)
	case errors.Is(err, domain.ErrPaymentChargeMismatch):
		// needs an operator, redelivery would never succeed
		c.logger.Error("payment confirmation conflict",
			zap.String("order", event.OrderID),
			zap.String("charge", event.PaymentChargeID))
		_ = message.Ack(false)
	case errors.Is(err, domain.ErrDataNotFound):
		c.logger.Warn("payment confirmation for unknown order",
			zap.String("order", event.OrderID))
		_ = message.Ack(false)
	case errors.Is(err, domain.ErrInternal), errors.Is(err, domain.ErrServiceUnavailable):
		c.logger.Error("payment confirmation failed, requeueing",
			zap.String("order", event.OrderID), zap.Error(err))
		_ = message.Nack(false, true)
	default:
		c.logger.Error("payment confirmation rejected",
			zap.String("order", event.OrderID), zap.Error(err))
		_ = message.Ack(false)
	}
}
