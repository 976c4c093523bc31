package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// TransactionStatus represents the lifecycle state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// IsTerminal reports whether no further gateway-driven transition is expected
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// CanTransitionTo reports whether moving from s to next is allowed.
// success -> failed is only used to compensate a failed payout.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusSuccess || next == TransactionStatusFailed
	case TransactionStatusSuccess:
		return next == TransactionStatusFailed
	default:
		return false
	}
}

// PaymentMethod is a payment channel offered by the gateway
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// CryptoIntent is a payout instruction attached to a transaction at creation
type CryptoIntent struct {
	Asset         string `json:"asset"`
	WalletAddress string `json:"walletAddress"`
}

// Value implements driver.Valuer for JSONB columns
func (c *CryptoIntent) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB columns
func (c *CryptoIntent) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, c)
}

// GatewayData is the last-known raw snapshot reported by the gateway
type GatewayData map[string]interface{}

// Value implements driver.Valuer for JSONB columns
func (g GatewayData) Value() (driver.Value, error) {
	if g == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner for JSONB columns
func (g *GatewayData) Scan(src interface{}) error {
	b, err := jsonBytes(src)
	if err != nil {
		return err
	}
	if b == nil {
		*g = GatewayData{}
		return nil
	}
	return json.Unmarshal(b, g)
}

// With returns a copy of the snapshot with key set to value
func (g GatewayData) With(key string, value interface{}) GatewayData {
	out := make(GatewayData, len(g)+1)
	for k, v := range g {
		out[k] = v
	}
	out[key] = value
	return out
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported JSON column type")
	}
}

// Transaction is the persisted record of one payment attempt
type Transaction struct {
	ID               string            `json:"id" db:"id"`
	GatewayReference string            `json:"gatewayReference" db:"gateway_reference"`
	Amount           float64           `json:"amount" db:"amount"`
	Currency         string            `json:"currency" db:"currency"`
	UserEmail        string            `json:"userEmail" db:"user_email"`
	PaymentMethod    PaymentMethod     `json:"paymentMethod" db:"payment_method"`
	MobileProvider   *string           `json:"mobileProvider,omitempty" db:"mobile_provider"`
	CryptoIntent     *CryptoIntent     `json:"cryptoIntent,omitempty" db:"crypto_intent"`
	Status           TransactionStatus `json:"status" db:"status"`
	GatewayData      GatewayData       `json:"gatewayData" db:"gateway_data"`
	CreatedAt        time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time         `json:"updatedAt" db:"updated_at"`
}

// HasCryptoIntent reports whether a payout must follow a successful charge
func (t *Transaction) HasCryptoIntent() bool {
	return t.CryptoIntent != nil && t.CryptoIntent.WalletAddress != ""
}

// CryptoTransactionHashKey is the snapshot key holding the payout transfer id
const CryptoTransactionHashKey = "cryptoTransactionHash"
