package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/piresc/payrelay/internal/pkg/circuitbreaker"
	pkghttp "github.com/piresc/payrelay/internal/pkg/http"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/internal/pkg/retry"
	"github.com/piresc/payrelay/services/payment"
)

// PaystackGW talks to the Paystack transaction API
type PaystackGW struct {
	client      *pkghttp.Client
	breaker     *circuitbreaker.CircuitBreaker
	verifyRetry *retry.Retrier
}

// NewPaystackGW creates a new Paystack gateway. Verify is retried on transient
// failures; Initialize is not, since a repeat would create a second transaction.
func NewPaystackGW(cfg models.PaystackConfig, timeout time.Duration) *PaystackGW {
	retryCfg := retry.DefaultConfig()
	retryCfg.Retryable = isTransient

	breakerCfg := circuitbreaker.DefaultConfig("paystack")
	breakerCfg.IsFailure = isOutage

	return &PaystackGW{
		client: pkghttp.NewClient(pkghttp.Config{
			BaseURL:     cfg.BaseURL,
			Timeout:     timeout,
			BearerToken: cfg.SecretKey,
		}),
		breaker:     circuitbreaker.New(breakerCfg),
		verifyRetry: retry.New("PaystackGW.Verify", retryCfg),
	}
}

// paystackResponse is the envelope of every Paystack API response
type paystackResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Initialize creates a transaction on Paystack
func (g *PaystackGW) Initialize(ctx context.Context, req models.InitializeRequest) (*models.InitializeResponse, error) {
	var resp paystackResponse
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.client.DoJSON(ctx, http.MethodPost, "/transaction/initialize", req, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("paystack initialize: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack initialize: %w: %s", payment.ErrGatewayRejected, resp.Message)
	}

	var data initializeData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("paystack initialize: invalid data: %w", err)
	}
	if data.Reference == "" || data.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: %w: response has no reference or authorization url", payment.ErrGatewayRejected)
	}

	raw := models.GatewayData{}
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("paystack initialize: invalid data: %w", err)
	}

	logger.InfoCtx(ctx, "Paystack transaction initialized",
		logger.Reference(data.Reference),
		logger.String("currency", req.Currency))

	return &models.InitializeResponse{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		Raw:              raw,
	}, nil
}

// Verify fetches the current state of reference from Paystack
func (g *PaystackGW) Verify(ctx context.Context, reference string) (*models.VerifyResponse, error) {
	var resp paystackResponse
	err := g.verifyRetry.Execute(ctx, func(ctx context.Context) error {
		resp = paystackResponse{}
		return g.breaker.Execute(ctx, func(ctx context.Context) error {
			return g.client.DoJSON(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &resp)
		})
	})
	if err != nil {
		var httpErr *pkghttp.HTTPError
		if errors.As(err, &httpErr) && isNotFound(httpErr) {
			return nil, payment.ErrGatewayNotFound
		}
		return nil, fmt.Errorf("paystack verify: %w", err)
	}
	if !resp.Status {
		return nil, fmt.Errorf("paystack verify: %w: %s", payment.ErrGatewayRejected, resp.Message)
	}

	raw := models.GatewayData{}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &raw); err != nil {
			return nil, fmt.Errorf("paystack verify: invalid data: %w", err)
		}
	}

	gatewayStatus, _ := raw["status"].(string)
	return &models.VerifyResponse{
		Status: MapPaystackStatus(gatewayStatus),
		Raw:    raw,
	}, nil
}

// MapPaystackStatus maps a Paystack transaction status to a local status.
// Anything not final is reported as pending.
func MapPaystackStatus(status string) models.TransactionStatus {
	switch strings.ToLower(status) {
	case "success":
		return models.TransactionStatusSuccess
	case "failed", "abandoned", "reversed":
		return models.TransactionStatusFailed
	default:
		return models.TransactionStatusPending
	}
}

// isTransient reports whether a failed call may succeed when repeated
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, pkghttp.ErrResponseTooLarge) {
		return false
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// isOutage reports whether err says Paystack itself is unhealthy
func isOutage(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}

// Paystack answers 400 for references it has never seen
func isNotFound(err *pkghttp.HTTPError) bool {
	if err.StatusCode == http.StatusNotFound {
		return true
	}
	return err.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(err.Message), "not found")
}
