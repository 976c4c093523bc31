package usecase

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
)

const opInitiatePayment = "PaymentUC.InitiatePayment"

// InitiatePayment validates req, creates the transaction on the gateway and
// persists it as pending
func (uc *PaymentUC) InitiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	return nrpkg.TraceUseCaseWithReturn(ctx, opInitiatePayment, func(ctx context.Context) (*models.InitiatePaymentResponse, error) {
		return uc.initiatePayment(ctx, req)
	})
}

func (uc *PaymentUC) initiatePayment(ctx context.Context, req *models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	intent, err := uc.validateInitiateRequest(req)
	if err != nil {
		if req == nil {
			return nil, err
		}
		logger.InfoCtx(ctx, "Payment request rejected",
			logger.String("currency", req.Currency),
			logger.String("payment_method", string(req.PaymentMethod)),
			logger.Err(err))
		return nil, err
	}

	currency := strings.ToUpper(req.Currency)
	initReq := models.InitializeRequest{
		Email:            req.Email,
		AmountMinorUnits: int64(math.Round(req.Amount * 100)),
		Currency:         currency,
		Channels:         []string{string(req.PaymentMethod)},
		CallbackURL:      uc.cfg.Paystack.DefaultCallbackURL,
		Metadata: map[string]interface{}{
			"paymentMethod": req.PaymentMethod,
		},
	}

	var provider *string
	if req.PaymentMethod == models.PaymentMethodMobileMoney {
		p := req.MobileProvider
		provider = &p
		initReq.Metadata["mobileProvider"] = p
		initReq.MobileMoney = &models.MobileMoneyDetails{Provider: p}
	}

	gwCtx, cancel := uc.bounded(ctx)
	initResp, err := uc.paymentGW.Initialize(gwCtx, initReq)
	cancel()
	if err != nil {
		appErr := upstreamError(opInitiatePayment, "", err)
		appErr.Message = msgGatewayUnavailableInit
		logger.ErrorCtx(ctx, "Failed to initialize payment on gateway",
			logger.String("currency", currency),
			logger.Bool("retriable", appErr.Retriable),
			logger.Err(err))
		return nil, appErr
	}

	now := uc.now()
	tx := &models.Transaction{
		ID:               uc.newID(),
		GatewayReference: initResp.Reference,
		Amount:           req.Amount,
		Currency:         currency,
		UserEmail:        req.Email,
		PaymentMethod:    req.PaymentMethod,
		MobileProvider:   provider,
		CryptoIntent:     intent,
		Status:           models.TransactionStatusPending,
		GatewayData:      initResp.Raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if tx.GatewayData == nil {
		tx.GatewayData = models.GatewayData{}
	}

	dbCtx, cancel := uc.bounded(ctx)
	err = uc.repo.Create(dbCtx, tx)
	cancel()
	if err != nil {
		// the gateway transaction exists but has no local record
		logger.ErrorCtx(ctx, "Failed to persist initiated transaction, remote transaction orphaned",
			logger.Reference(initResp.Reference),
			logger.Err(err))
		return nil, persistenceError(opInitiatePayment, initResp.Reference, err)
	}

	logger.InfoCtx(ctx, "Payment initiated",
		logger.TransactionID(tx.ID),
		logger.Reference(tx.GatewayReference),
		logger.String("currency", currency),
		logger.String("payment_method", string(tx.PaymentMethod)),
		logger.Bool("crypto_intent", tx.HasCryptoIntent()))

	uc.publish(ctx, models.PaymentEventInitiated, tx, "")

	return &models.InitiatePaymentResponse{
		AuthorizationURL: initResp.AuthorizationURL,
		Reference:        initResp.Reference,
		TransactionID:    tx.ID,
	}, nil
}

// validateInitiateRequest applies the country rules and returns the normalized
// crypto intent
func (uc *PaymentUC) validateInitiateRequest(req *models.InitiatePaymentRequest) (*models.CryptoIntent, error) {
	if req == nil {
		return nil, apperrors.Validation(opInitiatePayment, nil, "request body is required")
	}

	country, ok := uc.countries.ForCurrency(req.Currency)
	if !ok {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrUnsupportedCurrency,
			fmt.Sprintf("unsupported currency: %s", req.Currency))
	}

	if !country.SupportsMethod(req.PaymentMethod) {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrUnsupportedMethod,
			fmt.Sprintf("payment method %s not available for %s", req.PaymentMethod, country.Currency))
	}

	if req.PaymentMethod == models.PaymentMethodMobileMoney {
		if strings.TrimSpace(req.MobileProvider) == "" {
			return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrMobileProviderNeeded,
				apperrors.ErrMobileProviderNeeded.Error())
		}
		if !country.SupportsProvider(req.MobileProvider) {
			return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrUnsupportedProvider,
				fmt.Sprintf("mobile provider %s not supported for %s", req.MobileProvider, country.Currency))
		}
	}

	if !isValidEmail(req.Email) {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrInvalidEmail, "invalid email address")
	}

	if req.Amount <= 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrInvalidAmount, "amount must be greater than zero")
	}
	if req.Amount < country.MinAmount || (country.MaxAmount > 0 && req.Amount > country.MaxAmount) {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrInvalidAmount,
			fmt.Sprintf("amount must be between %g and %g %s", country.MinAmount, country.MaxAmount, country.Currency))
	}

	intent := req.NormalizedCryptoIntent()
	if intent != nil && (strings.TrimSpace(intent.Asset) == "" || strings.TrimSpace(intent.WalletAddress) == "") {
		return nil, apperrors.Validation(opInitiatePayment, apperrors.ErrInvalidCryptoIntent,
			apperrors.ErrInvalidCryptoIntent.Error())
	}

	return intent, nil
}

// isValidEmail accepts a bare address with a dotted domain
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
