package domain

import "github.com/govalues/decimal"

// ProductSnapshot is a transient catalog lookup result. It is never stored:
// names and current prices are re-fetched on every request.
type ProductSnapshot struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// PaymentSession describes a hosted checkout created by the payment gateway.
type PaymentSession struct {
	SessionID  string
	URL        string
	CancelURL  string
	SuccessURL string
}

// PaymentConfirmation is the asynchronous charge-succeeded event delivered
// by the payment gateway, at least once.
type PaymentConfirmation struct {
	OrderID         string
	PaymentChargeID string
	ReceiptURL      string
}
