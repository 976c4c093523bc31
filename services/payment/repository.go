package payment

import (
	"context"

	"github.com/piresc/payrelay/internal/pkg/models"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks github.com/piresc/payrelay/services/payment TransactionRepo,Locker

// TransactionRepo defines persistence operations for transactions
type TransactionRepo interface {
	// FindByReference returns nil and no error when the reference is unknown
	FindByReference(ctx context.Context, reference string) (*models.Transaction, error)
	Create(ctx context.Context, tx *models.Transaction) error
	// UpdateStatus moves a transaction from expected to next and stores data as the
	// new snapshot. applied is false when the stored status was no longer expected.
	UpdateStatus(ctx context.Context, id string, expected, next models.TransactionStatus, data models.GatewayData) (applied bool, err error)
	UpdateSnapshot(ctx context.Context, id string, data models.GatewayData) error
}

// Locker serializes work on a single gateway reference across instances
type Locker interface {
	// Lock blocks until the reference is held or ctx is done. The returned func
	// releases the lock.
	Lock(ctx context.Context, reference string) (unlock func(), err error)
}
