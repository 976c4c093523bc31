package usecase

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/piresc/payrelay/internal/pkg/apperrors"
	pkghttp "github.com/piresc/payrelay/internal/pkg/http"
	"github.com/piresc/payrelay/services/payment"
)

const (
	msgUpstreamUnavailable    = "upstream service unavailable"
	msgGatewayUnavailableInit = "payment gateway unavailable"
)

// upstreamError classifies a failed gateway, payout or lock call. The cause is
// kept for logs and never shown to callers.
func upstreamError(op, reference string, err error) *apperrors.Error {
	appErr := apperrors.Upstream(op, reference, err, isRetriable(err))
	appErr.Message = msgUpstreamUnavailable
	if isTimeout(err) {
		appErr.Timeout = true
		appErr.Retriable = true
	}
	return appErr
}

// persistenceError classifies a failed storage call
func persistenceError(op, reference string, err error) *apperrors.Error {
	appErr := apperrors.Persistence(op, reference, err)
	appErr.Timeout = isTimeout(err)
	return appErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isRetriable treats transport failures, lock contention, throttling and 5xx
// responses as safe to repeat
func isRetriable(err error) bool {
	if errors.Is(err, payment.ErrGatewayRejected) {
		return false
	}
	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
