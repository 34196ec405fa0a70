package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/govalues/decimal"
	"github.com/mbarulin/ordersvc/internal/adapter/config"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"go.uber.org/zap"
)

const requestTimeout = 10 * time.Second

// Client resolves product ids against the catalog service in one
// request/reply round trip per call.
type Client struct {
	logger     *zap.Logger
	host       string
	httpClient *http.Client
}

func NewClient(cfg *config.Catalog, log *zap.Logger) (*Client, error) {
	return &Client{
		host:   cfg.HostString,
		logger: log,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}, nil
}

type validateRequest struct {
	IDs []string `json:"ids"`
}

type productResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

func (c *Client) ValidateProducts(ctx context.Context, productIDs []string) ([]domain.ProductSnapshot, error) {
	body, err := json.Marshal(validateRequest{IDs: productIDs})
	if err != nil {
		return nil, fmt.Errorf("error encoding catalog request: %w", err)
	}

	requestStr := "http://" + c.host + "/api/products/validate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestStr, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error on %s : %w", requestStr, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("catalog request failed", zap.Error(err))
		return nil, domain.ErrServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusBadRequest:
		// the catalog rejects the whole batch when any id is unknown
		return nil, domain.ErrProductNotFound
	default:
		c.logger.Error("unexpected status from catalog",
			zap.Int("status", resp.StatusCode))
		return nil, domain.ErrServiceUnavailable
	}

	var result []productResponse
	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return nil, fmt.Errorf("error on response decode: %w", err)
	}

	snapshots := make([]domain.ProductSnapshot, 0, len(result))
	for _, p := range result {
		price, err := decimal.NewFromFloat64(p.Price)
		if err != nil {
			return nil, fmt.Errorf("error on response decode: %w", err)
		}
		snapshots = append(snapshots, domain.ProductSnapshot{
			ID:    p.ID,
			Name:  p.Name,
			Price: price,
		})
	}

	return snapshots, nil
}
