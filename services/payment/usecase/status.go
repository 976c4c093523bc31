package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
	"github.com/piresc/payrelay/services/payment"
)

const opGetTransactionStatus = "PaymentUC.GetTransactionStatus"

const (
	msgStatusLocal          = "transaction status retrieved"
	msgStatusGateway        = "transaction status verified with gateway"
	msgStatusPending        = "payment is still pending on gateway"
	msgGatewayUnavailable   = "gateway verification unavailable; showing last known status"
	msgReconcileUnavailable = "reconciliation in progress; showing last known status"
	msgPayoutFailed         = "payment confirmed but crypto payout failed; transaction marked failed"
)

// GetTransactionStatus reports the best-known status of reference. A pending
// local record is reconciled with the gateway and updated when the gateway
// reports a final status.
func (uc *PaymentUC) GetTransactionStatus(ctx context.Context, reference string) (*models.TransactionStatusResult, error) {
	return nrpkg.TraceUseCaseWithReturn(ctx, opGetTransactionStatus, func(ctx context.Context) (*models.TransactionStatusResult, error) {
		return uc.getTransactionStatus(ctx, reference)
	})
}

func (uc *PaymentUC) getTransactionStatus(ctx context.Context, reference string) (*models.TransactionStatusResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperrors.Validation(opGetTransactionStatus, nil, "reference is required")
	}

	local, err := uc.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if local != nil && local.Status.IsTerminal() {
		return localResult(local, msgStatusLocal), nil
	}

	gwCtx, cancel := uc.bounded(ctx)
	verified, err := uc.paymentGW.Verify(gwCtx, reference)
	cancel()
	if err != nil {
		if local != nil {
			logger.WarnCtx(ctx, "Gateway verification failed, reporting local status",
				logger.Reference(reference),
				logger.Err(err))
			return localResult(local, msgGatewayUnavailable), nil
		}
		if !errors.Is(err, payment.ErrGatewayNotFound) {
			logger.WarnCtx(ctx, "Gateway verification failed for unknown reference",
				logger.Reference(reference),
				logger.Err(err))
		}
		return nil, apperrors.NotFound(opGetTransactionStatus, reference, apperrors.ErrTransactionNotFound)
	}

	if local == nil {
		return gatewayResult(reference, verified), nil
	}

	if !verified.Status.IsTerminal() {
		result := localResult(local, msgStatusPending)
		result.Source = models.StatusSourceGateway
		return result, nil
	}

	return uc.reconcile(ctx, reference, verified)
}

// reconcile writes a final gateway status through to a pending local record
func (uc *PaymentUC) reconcile(ctx context.Context, reference string, verified *models.VerifyResponse) (*models.TransactionStatusResult, error) {
	lockCtx, cancel := uc.bounded(ctx)
	unlock, err := uc.locker.Lock(lockCtx, reference)
	cancel()
	if err != nil {
		logger.WarnCtx(ctx, "Failed to lock reference for reconciliation",
			logger.Reference(reference),
			logger.Err(err))
		local, findErr := uc.findByReference(ctx, reference)
		if findErr != nil || local == nil {
			return nil, upstreamError(opGetTransactionStatus, reference, err)
		}
		return localResult(local, msgReconcileUnavailable), nil
	}
	defer unlock()

	// a webhook may have settled the transaction before the lock was acquired
	tx, err := uc.findByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return gatewayResult(reference, verified), nil
	}
	if tx.Status != models.TransactionStatusPending {
		return localResult(tx, msgStatusLocal), nil
	}

	var applied bool
	switch verified.Status {
	case models.TransactionStatusSuccess:
		applied, err = uc.settleSuccess(ctx, opGetTransactionStatus, tx, verified.Raw)
		if err != nil {
			if apperrors.IsCompensated(err) {
				return sourcedResult(tx, msgPayoutFailed, models.StatusSourceGateway), nil
			}
			return nil, err
		}
	default:
		applied, err = uc.settleFailure(ctx, tx, verified.Raw)
		if err != nil {
			return nil, err
		}
	}

	if !applied {
		stored, err := uc.findByReference(ctx, reference)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return gatewayResult(reference, verified), nil
		}
		return localResult(stored, msgStatusLocal), nil
	}

	return sourcedResult(tx, msgStatusGateway, models.StatusSourceGateway), nil
}

// settleFailure moves a pending transaction to failed
func (uc *PaymentUC) settleFailure(ctx context.Context, tx *models.Transaction, data models.GatewayData) (bool, error) {
	if data == nil {
		data = models.GatewayData{}
	}

	dbCtx, cancel := uc.bounded(ctx)
	applied, err := uc.repo.UpdateStatus(dbCtx, tx.ID, models.TransactionStatusPending, models.TransactionStatusFailed, data)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to mark transaction failed",
			logger.Reference(tx.GatewayReference),
			logger.Err(err))
		return false, persistenceError(opGetTransactionStatus, tx.GatewayReference, err)
	}
	if !applied {
		return false, nil
	}

	tx.Status = models.TransactionStatusFailed
	tx.GatewayData = data
	logger.InfoCtx(ctx, "Transaction marked failed from gateway verification",
		logger.TransactionID(tx.ID),
		logger.Reference(tx.GatewayReference))

	reason, _ := data["gateway_response"].(string)
	uc.publish(ctx, models.PaymentEventFailed, tx, reason)
	return true, nil
}

func (uc *PaymentUC) findByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	dbCtx, cancel := uc.bounded(ctx)
	defer cancel()

	tx, err := uc.repo.FindByReference(dbCtx, reference)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to load transaction", logger.Reference(reference), logger.Err(err))
		return nil, persistenceError(opGetTransactionStatus, reference, err)
	}
	return tx, nil
}

func localResult(tx *models.Transaction, message string) *models.TransactionStatusResult {
	return sourcedResult(tx, message, models.StatusSourceLocal)
}

func sourcedResult(tx *models.Transaction, message string, source models.StatusSource) *models.TransactionStatusResult {
	return &models.TransactionStatusResult{
		Reference:     tx.GatewayReference,
		Status:        tx.Status,
		Message:       message,
		Source:        source,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
	}
}

// gatewayResult reports a reference that has no local record. It is not persisted.
func gatewayResult(reference string, verified *models.VerifyResponse) *models.TransactionStatusResult {
	result := &models.TransactionStatusResult{
		Reference: reference,
		Status:    verified.Status,
		Message:   msgStatusGateway,
		Source:    models.StatusSourceGateway,
	}
	if currency, ok := verified.Raw["currency"].(string); ok {
		result.Currency = currency
	}
	if minor, ok := verified.Raw["amount"].(float64); ok {
		result.Amount = minor / 100
	}
	return result
}
