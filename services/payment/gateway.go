package payment

import (
	"context"
	"errors"

	"github.com/piresc/payrelay/internal/pkg/models"
)

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks github.com/piresc/payrelay/services/payment PaymentGW,PayoutGW,EventGW

var (
	// ErrGatewayNotFound is returned by Verify when the gateway does not know the reference
	ErrGatewayNotFound = errors.New("reference not found on gateway")
	// ErrGatewayRejected is returned when the gateway answered but refused the request
	ErrGatewayRejected = errors.New("gateway rejected request")
)

// PaymentGW defines the payment processor operations
type PaymentGW interface {
	Initialize(ctx context.Context, req models.InitializeRequest) (*models.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*models.VerifyResponse, error)
}

// PayoutGW dispatches crypto asset transfers
type PayoutGW interface {
	// Transfer returns the transfer id of the dispatched payout
	Transfer(ctx context.Context, walletAddress string, amount float64, asset string) (string, error)
}

// EventGW publishes payment outcome notifications
type EventGW interface {
	PublishPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}
