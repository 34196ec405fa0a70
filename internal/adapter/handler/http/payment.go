package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mbarulin/ordersvc/internal/core/port"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	Handler
	service port.Service
}

func NewPaymentHandler(service port.Service, logger *zap.Logger) (*PaymentHandler, error) {
	return &PaymentHandler{
		Handler: *NewHandler(logger),
		service: service,
	}, nil
}

type PaymentSessionResp struct {
	SessionID  string `json:"sessionId"`
	URL        string `json:"url"`
	CancelURL  string `json:"cancelUrl,omitempty"`
	SuccessURL string `json:"successUrl,omitempty"`
}

func (ph *PaymentHandler) CreatePaymentSession(ctx *gin.Context) {
	session, err := ph.service.RequestPaymentSession(ctx, ctx.Param("id"))
	if err != nil {
		ph.handleError(ctx, err)
		return
	}

	ph.handleSuccess(ctx, PaymentSessionResp{
		SessionID:  session.SessionID,
		URL:        session.URL,
		CancelURL:  session.CancelURL,
		SuccessURL: session.SuccessURL,
	})
}
