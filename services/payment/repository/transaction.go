package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
)

const uniqueViolation = "23505"

// ErrDuplicateReference is returned by Create when the gateway reference is taken
var ErrDuplicateReference = errors.New("gateway reference already exists")

const transactionColumns = `id, gateway_reference, amount, currency, user_email, payment_method,
	mobile_provider, crypto_intent, status, gateway_data, created_at, updated_at`

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id                UUID PRIMARY KEY,
	gateway_reference TEXT NOT NULL,
	amount            NUMERIC(18, 2) NOT NULL,
	currency          VARCHAR(8) NOT NULL,
	user_email        TEXT NOT NULL,
	payment_method    VARCHAR(32) NOT NULL,
	mobile_provider   VARCHAR(32),
	crypto_intent     JSONB,
	status            VARCHAR(16) NOT NULL DEFAULT 'pending',
	gateway_data      JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS transactions_gateway_reference_key ON transactions (gateway_reference);`

// TransactionRepo is the Postgres implementation of payment.TransactionRepo
type TransactionRepo struct {
	cfg *models.Config
	db  *sqlx.DB
}

// NewTransactionRepo creates a new transaction repository
func NewTransactionRepo(cfg *models.Config, db *sqlx.DB) *TransactionRepo {
	return &TransactionRepo{
		cfg: cfg,
		db:  db,
	}
}

// EnsureSchema creates the transactions table when it does not exist yet
func (r *TransactionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create transactions schema: %w", err)
	}
	return nil
}

// FindByReference retrieves a transaction by its gateway reference
func (r *TransactionRepo) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE gateway_reference = $1`

	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

// Create inserts a new transaction
func (r *TransactionRepo) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.GatewayReference,
		tx.Amount,
		tx.Currency,
		tx.UserEmail,
		tx.PaymentMethod,
		tx.MobileProvider,
		tx.CryptoIntent,
		tx.Status,
		tx.GatewayData,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateReference, tx.GatewayReference)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	logger.DebugCtx(ctx, "Transaction created",
		logger.TransactionID(tx.ID),
		logger.Reference(tx.GatewayReference))
	return nil
}

// UpdateStatus moves the transaction from expected to next. A nil data keeps the
// stored snapshot.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id string, expected, next models.TransactionStatus, data models.GatewayData) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, fmt.Errorf("invalid status transition %s -> %s", expected, next)
	}

	var snapshot interface{}
	if data != nil {
		snapshot = data
	}

	query := `
		UPDATE transactions
		SET status = $1, gateway_data = COALESCE($2::jsonb, gateway_data), updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, next, snapshot, id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// UpdateSnapshot replaces the gateway snapshot without touching the status
func (r *TransactionRepo) UpdateSnapshot(ctx context.Context, id string, data models.GatewayData) error {
	query := `UPDATE transactions SET gateway_data = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, data, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction snapshot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transaction %s not found", id)
	}
	return nil
}
