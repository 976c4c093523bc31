package payment

import (
	"context"

	"github.com/piresc/payrelay/internal/pkg/models"
)

//go:generate mockgen -destination=mocks/mock_usecase.go -package=mocks github.com/piresc/payrelay/services/payment PaymentUC

// PaymentUC defines the payment flows
type PaymentUC interface {
	// InitiatePayment validates the request, creates the remote transaction and
	// persists it as pending
	InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error)

	// HandleWebhook authenticates and applies a gateway event. payload must be the
	// exact bytes received.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// GetTransactionStatus reports the best-known status of a reference,
	// reconciling with the gateway when the local record is not final
	GetTransactionStatus(ctx context.Context, reference string) (*models.TransactionStatusResult, error)
}
