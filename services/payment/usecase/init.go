package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/services/payment"
)

const defaultCallTimeout = 10 * time.Second

// PaymentUC implements payment.PaymentUC
type PaymentUC struct {
	cfg       *models.Config
	countries models.CountryConfigs
	repo      payment.TransactionRepo
	locker    payment.Locker
	paymentGW payment.PaymentGW
	payoutGW  payment.PayoutGW
	eventGW   payment.EventGW

	callTimeout time.Duration
	newID       func() string
	now         func() time.Time
}

// NewPaymentUC creates a new payment usecase instance
func NewPaymentUC(
	cfg *models.Config,
	countries models.CountryConfigs,
	repo payment.TransactionRepo,
	locker payment.Locker,
	paymentGW payment.PaymentGW,
	payoutGW payment.PayoutGW,
	eventGW payment.EventGW,
) *PaymentUC {
	callTimeout := time.Duration(cfg.Payment.OutboundTimeoutSeconds) * time.Second
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	return &PaymentUC{
		cfg:         cfg,
		countries:   countries,
		repo:        repo,
		locker:      locker,
		paymentGW:   paymentGW,
		payoutGW:    payoutGW,
		eventGW:     eventGW,
		callTimeout: callTimeout,
		newID:       func() string { return uuid.New().String() },
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// bounded returns ctx limited to the outbound call timeout
func (uc *PaymentUC) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, uc.callTimeout)
}

// publish sends an outcome notification. Failures are logged only.
func (uc *PaymentUC) publish(ctx context.Context, eventType string, tx *models.Transaction, reason string) {
	event := models.NewPaymentEvent(eventType, tx)
	event.Reason = reason

	pubCtx, cancel := uc.bounded(context.WithoutCancel(ctx))
	defer cancel()

	if err := uc.eventGW.PublishPaymentEvent(pubCtx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish payment event",
			logger.String("event_type", eventType),
			logger.Reference(tx.GatewayReference),
			logger.Err(err))
	}
}
