package models

import (
	"time"
)

// InitiatePaymentRequest represents a request to start a payment
type InitiatePaymentRequest struct {
	Email          string        `json:"email"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	PaymentMethod  PaymentMethod `json:"paymentMethod"`
	MobileProvider string        `json:"mobileProvider,omitempty"`
	CryptoIntent   *CryptoIntent `json:"cryptoIntent,omitempty"`

	// Flat crypto fields accepted for compatibility with the v1 API
	CryptoAsset         string `json:"cryptoAsset,omitempty"`
	CryptoWalletAddress string `json:"cryptoWalletAddress,omitempty"`
}

// NormalizedCryptoIntent returns the payout instruction from either request shape
func (r InitiatePaymentRequest) NormalizedCryptoIntent() *CryptoIntent {
	if r.CryptoIntent != nil {
		return r.CryptoIntent
	}
	if r.CryptoAsset != "" || r.CryptoWalletAddress != "" {
		return &CryptoIntent{Asset: r.CryptoAsset, WalletAddress: r.CryptoWalletAddress}
	}
	return nil
}

// InitiatePaymentResponse is returned after a payment has been created
type InitiatePaymentResponse struct {
	AuthorizationURL string `json:"paymentUrl"`
	Reference        string `json:"reference"`
	TransactionID    string `json:"transactionId"`
}

// StatusSource tells where a reported status came from
type StatusSource string

const (
	StatusSourceLocal   StatusSource = "local"
	StatusSourceGateway StatusSource = "gateway"
)

// TransactionStatusResult is the best-known status of a gateway reference
type TransactionStatusResult struct {
	Reference     string            `json:"reference"`
	Status        TransactionStatus `json:"status"`
	Message       string            `json:"message"`
	Source        StatusSource      `json:"source"`
	TransactionID string            `json:"transactionId,omitempty"`
	Amount        float64           `json:"amount,omitempty"`
	Currency      string            `json:"currency,omitempty"`
}

// Payment event subjects published after each flow
const (
	PaymentEventInitiated = "initiated"
	PaymentEventSucceeded = "succeeded"
	PaymentEventFailed    = "failed"
)

// PaymentEvent notifies downstream consumers about a transaction outcome
type PaymentEvent struct {
	Type                  string            `json:"type"`
	TransactionID         string            `json:"transactionId"`
	Reference             string            `json:"reference"`
	Status                TransactionStatus `json:"status"`
	Amount                float64           `json:"amount"`
	Currency              string            `json:"currency"`
	CryptoTransactionHash string            `json:"cryptoTransactionHash,omitempty"`
	Reason                string            `json:"reason,omitempty"`
	OccurredAt            time.Time         `json:"occurredAt"`
}

// NewPaymentEvent builds an event snapshot of tx
func NewPaymentEvent(eventType string, tx *Transaction) PaymentEvent {
	ev := PaymentEvent{
		Type:          eventType,
		TransactionID: tx.ID,
		Reference:     tx.GatewayReference,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	if hash, ok := tx.GatewayData[CryptoTransactionHashKey].(string); ok {
		ev.CryptoTransactionHash = hash
	}
	return ev
}
