package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/govalues/decimal"
	"github.com/mbarulin/ordersvc/internal/core/domain"
	"github.com/mbarulin/ordersvc/internal/core/port"
	"go.uber.org/zap"
)

type OrderHandler struct {
	Handler
	service port.Service
}

func NewOrderHandler(service port.Service, logger *zap.Logger) (*OrderHandler, error) {
	return &OrderHandler{
		Handler: *NewHandler(logger),
		service: service,
	}, nil
}

type orderItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int32  `json:"quantity" binding:"required"`
}

type createOrderReq struct {
	Items []orderItemReq `json:"items" binding:"required"`
}

type OrderItemResp struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
}

type OrderResp struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalItems      int32           `json:"totalItems"`
	Paid            bool            `json:"paid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentChargeID string          `json:"paymentChargeId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	Items           []OrderItemResp `json:"items,omitempty"`
	ReceiptURL      string          `json:"receiptUrl,omitempty"`
}

func newOrderResp(o *domain.Order) OrderResp {
	r := OrderResp{
		ID:              o.ID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		TotalItems:      o.TotalItems,
		Paid:            o.Paid,
		PaidAt:          o.PaidAt,
		PaymentChargeID: o.PaymentChargeID,
		CreatedAt:       o.CreatedAt,
	}
	for _, item := range o.Items {
		r.Items = append(r.Items, OrderItemResp{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	if o.Receipt != nil {
		r.ReceiptURL = o.Receipt.ReceiptURL
	}
	return r
}

func (oh *OrderHandler) CreateOrder(ctx *gin.Context) {
	var req createOrderReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, domain.ErrBadRequest)
		return
	}

	items := make([]domain.NewOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.NewOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := oh.service.CreateOrder(ctx, items)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccessWithStatus(ctx, newOrderResp(order), http.StatusCreated)
}

func (oh *OrderHandler) GetOrder(ctx *gin.Context) {
	order, err := oh.service.GetOrder(ctx, ctx.Param("id"))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderResp(order))
}

type ListMetaResp struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	LastPage int   `json:"lastPage"`
}

type ListOrdersResp struct {
	Data []OrderResp  `json:"data"`
	Meta ListMetaResp `json:"meta"`
}

func (oh *OrderHandler) ListOrders(ctx *gin.Context) {
	status := domain.OrderStatus(ctx.DefaultQuery("status", string(domain.OrderStatusPending)))
	page, err := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	if err != nil {
		oh.handleValidationError(ctx, domain.ErrBadRequest)
		return
	}
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if err != nil {
		oh.handleValidationError(ctx, domain.ErrBadRequest)
		return
	}

	result, err := oh.service.ListOrders(ctx, status, page, limit)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	resp := ListOrdersResp{
		Data: make([]OrderResp, 0, len(result.Data)),
		Meta: ListMetaResp{
			Total:    result.Total,
			Page:     result.Page,
			LastPage: result.LastPage,
		},
	}
	for _, o := range result.Data {
		resp.Data = append(resp.Data, newOrderResp(o))
	}

	oh.handleSuccess(ctx, resp)
}

type changeStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (oh *OrderHandler) ChangeOrderStatus(ctx *gin.Context) {
	var req changeStatusReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, domain.ErrBadRequest)
		return
	}

	order, err := oh.service.ChangeOrderStatus(ctx, ctx.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, newOrderResp(order))
}
