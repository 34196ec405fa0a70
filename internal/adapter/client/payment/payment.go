package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mbarulin/ordersvc/internal/adapter/config"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second
const sessionCurrency = "usd"

// Client requests hosted checkout sessions from the payment gateway.
type Client struct {
	logger     *zap.Logger
	host       string
	httpClient *http.Client
}

func NewClient(cfg *config.Payment, log *zap.Logger) (*Client, error) {
	return &Client{
		host:   cfg.HostString,
		logger: log,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

type sessionItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
}

type sessionRequest struct {
	OrderID  string        `json:"orderId"`
	Currency string        `json:"currency"`
	Items    []sessionItem `json:"items"`
}

type sessionResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	CancelURL  string `json:"cancelUrl"`
	SuccessURL string `json:"successUrl"`
}

func (c *Client) CreateSession(ctx context.Context, order *domain.Order) (*domain.PaymentSession, error) {
	items := make([]sessionItem, 0, len(order.Items))
	for _, item := range order.Items {
		price, ok := item.Price.Float64()
		if !ok {
			return nil, fmt.Errorf("error encoding price for product %s", item.ProductID)
		}
		items = append(items, sessionItem{
			Name:     item.Name,
			Price:    price,
			Quantity: item.Quantity,
		})
	}

	body, err := json.Marshal(sessionRequest{
		OrderID:  order.ID,
		Currency: sessionCurrency,
		Items:    items,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding session request: %w", err)
	}

	requestStr := "http://" + c.host + "/api/payments/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestStr, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error on %s : %w", requestStr, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("payment session request failed", zap.Error(err))
		return nil, domain.ErrServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("unexpected status from payment gateway",
			zap.String("order", order.ID), zap.Int("status", resp.StatusCode))
		return nil, domain.ErrServiceUnavailable
	}

	var result sessionResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("error on response decode: %w", err)
	}

	return &domain.PaymentSession{
		SessionID:  result.ID,
		URL:        result.URL,
		CancelURL:  result.CancelURL,
		SuccessURL: result.SuccessURL,
	}, nil
}
