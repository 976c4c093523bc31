package usecase

import (
	"context"

	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
)

const opHandleWebhook = "PaymentUC.HandleWebhook"

// HandleWebhook authenticates payload against signature and applies the event.
// Repeated deliveries of the same event are no-ops.
func (uc *PaymentUC) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	return nrpkg.TraceUseCase(ctx, opHandleWebhook, func(ctx context.Context) error {
		return uc.handleWebhook(ctx, payload, signature)
	})
}

func (uc *PaymentUC) handleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !VerifySignature(uc.cfg.Paystack.SecretKey, payload, signature) {
		logger.WarnCtx(ctx, "Rejected webhook with invalid signature",
			logger.Bool("signature_present", signature != ""),
			logger.Int("payload_bytes", len(payload)))
		return apperrors.Authentication(opHandleWebhook, apperrors.ErrInvalidSignature)
	}

	event, err := models.DecodeWebhookEvent(payload)
	if err != nil {
		logger.WarnCtx(ctx, "Rejected malformed webhook payload", logger.Err(err))
		return apperrors.Validation(opHandleWebhook, err, "invalid webhook payload")
	}

	switch ev := event.(type) {
	case models.ChargeSuccessEvent:
		return uc.handleChargeSuccess(ctx, ev)
	default:
		logger.DebugCtx(ctx, "Ignoring webhook event", logger.String("event", string(ev.Kind())))
		return nil
	}
}

func (uc *PaymentUC) handleChargeSuccess(ctx context.Context, ev models.ChargeSuccessEvent) error {
	ref := ev.Reference
	nrpkg.AddTransactionAttribute(nrpkg.FromContext(ctx), "payment.reference", ref)

	lockCtx, cancel := uc.bounded(ctx)
	unlock, err := uc.locker.Lock(lockCtx, ref)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to lock reference", logger.Reference(ref), logger.Err(err))
		return upstreamError(opHandleWebhook, ref, err)
	}
	defer unlock()

	dbCtx, cancel := uc.bounded(ctx)
	tx, err := uc.repo.FindByReference(dbCtx, ref)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to load transaction for webhook", logger.Reference(ref), logger.Err(err))
		return persistenceError(opHandleWebhook, ref, err)
	}
	if tx == nil {
		logger.WarnCtx(ctx, "Webhook for unknown reference ignored", logger.Reference(ref))
		return nil
	}
	if tx.Status != models.TransactionStatusPending {
		logger.InfoCtx(ctx, "Webhook for already processed transaction ignored",
			logger.Reference(ref),
			logger.String("status", string(tx.Status)))
		return nil
	}

	_, err = uc.settleSuccess(ctx, opHandleWebhook, tx, ev.Data)
	return err
}

// settleSuccess moves a pending transaction to success and dispatches its payout.
// The caller holds the reference lock. applied is false when another writer moved
// the transaction first, in which case nothing else happens.
func (uc *PaymentUC) settleSuccess(ctx context.Context, op string, tx *models.Transaction, data models.GatewayData) (bool, error) {
	ref := tx.GatewayReference
	if data == nil {
		data = models.GatewayData{}
	}

	dbCtx, cancel := uc.bounded(ctx)
	applied, err := uc.repo.UpdateStatus(dbCtx, tx.ID, models.TransactionStatusPending, models.TransactionStatusSuccess, data)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to mark transaction successful", logger.Reference(ref), logger.Err(err))
		return false, persistenceError(op, ref, err)
	}
	if !applied {
		logger.InfoCtx(ctx, "Transaction already moved by a concurrent writer", logger.Reference(ref))
		return false, nil
	}

	tx.Status = models.TransactionStatusSuccess
	tx.GatewayData = data
	logger.InfoCtx(ctx, "Transaction marked successful",
		logger.TransactionID(tx.ID),
		logger.Reference(ref))

	if tx.HasCryptoIntent() {
		if appErr := uc.dispatchPayout(ctx, op, tx); appErr != nil {
			return true, uc.compensate(ctx, tx, appErr)
		}
	}

	uc.publish(ctx, models.PaymentEventSucceeded, tx, "")
	return true, nil
}

// dispatchPayout sends the crypto payout and records its transfer id
func (uc *PaymentUC) dispatchPayout(ctx context.Context, op string, tx *models.Transaction) *apperrors.Error {
	ref := tx.GatewayReference
	intent := tx.CryptoIntent

	payCtx, cancel := uc.bounded(ctx)
	transferID, err := uc.payoutGW.Transfer(payCtx, intent.WalletAddress, tx.Amount, intent.Asset)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Crypto payout failed",
			logger.Reference(ref),
			logger.String("asset", intent.Asset),
			logger.Err(err))
		return upstreamError(op, ref, err)
	}

	snapshot := tx.GatewayData.With(models.CryptoTransactionHashKey, transferID)

	dbCtx, cancel := uc.bounded(ctx)
	err = uc.repo.UpdateSnapshot(dbCtx, tx.ID, snapshot)
	cancel()
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to record payout transfer id",
			logger.Reference(ref),
			logger.String("transfer_id", transferID),
			logger.Err(err))
		return persistenceError(op, ref, err)
	}

	tx.GatewayData = snapshot
	logger.InfoCtx(ctx, "Crypto payout recorded",
		logger.Reference(ref),
		logger.String("transfer_id", transferID))
	return nil
}

// compensate moves a successful transaction to failed after its payout could not
// complete and returns cause marked as compensated
func (uc *PaymentUC) compensate(ctx context.Context, tx *models.Transaction, cause *apperrors.Error) error {
	ref := tx.GatewayReference

	// runs even if the caller has gone away
	dbCtx, cancel := uc.bounded(context.WithoutCancel(ctx))
	applied, err := uc.repo.UpdateStatus(dbCtx, tx.ID, models.TransactionStatusSuccess, models.TransactionStatusFailed, nil)
	cancel()

	switch {
	case err != nil:
		logger.ErrorCtx(ctx, "Compensation failed, transaction left successful without payout",
			logger.Reference(ref),
			logger.String("cause", cause.Error()),
			logger.Err(err))
		return cause
	case !applied:
		logger.ErrorCtx(ctx, "Compensation skipped, transaction no longer successful",
			logger.Reference(ref),
			logger.String("cause", cause.Error()))
		return cause
	}

	tx.Status = models.TransactionStatusFailed
	cause.Compensated = true
	cause.Message = "crypto payout failed, transaction marked failed"

	logger.WarnCtx(ctx, "Transaction compensated to failed after payout failure",
		logger.TransactionID(tx.ID),
		logger.Reference(ref),
		logger.Err(cause.Err))

	uc.publish(ctx, models.PaymentEventFailed, tx, cause.Message)
	return cause
}
