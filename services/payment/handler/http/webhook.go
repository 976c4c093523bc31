package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/payrelay/internal/pkg/apperrors"
	"github.com/piresc/payrelay/internal/pkg/logger"
)

const (
	// SignatureHeader carries the hex HMAC-SHA512 of the raw body
	SignatureHeader = "x-paystack-signature"

	defaultWebhookMaxBodyBytes = 64 << 10

	codePayoutFailed = "payout_failed"
)

// WebhookErrorResponse is the body returned when a webhook is not accepted
type WebhookErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HandleWebhook applies a gateway event. The body is passed through unparsed
// so the signature is checked against the exact bytes received.
func (h *PaymentHandler) HandleWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, h.webhookMaxBodyBytes+1))
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read webhook body", logger.Err(err))
		return c.JSON(http.StatusBadRequest, WebhookErrorResponse{Error: "unable to read request body"})
	}
	if int64(len(payload)) > h.webhookMaxBodyBytes {
		logger.WarnCtx(ctx, "Rejected oversized webhook body")
		return c.JSON(http.StatusBadRequest, WebhookErrorResponse{Error: "request body too large"})
	}

	signature := c.Request().Header.Get(SignatureHeader)
	if err := h.paymentUC.HandleWebhook(ctx, payload, signature); err != nil {
		return c.JSON(http.StatusBadRequest, webhookError(err))
	}

	return c.NoContent(http.StatusOK)
}

func webhookError(err error) WebhookErrorResponse {
	appErr, ok := apperrors.As(err)
	if !ok {
		return WebhookErrorResponse{Error: "webhook processing failed"}
	}

	switch {
	case appErr.Compensated:
		return WebhookErrorResponse{Error: appErr.PublicMessage(), Code: codePayoutFailed}
	case appErr.Kind == apperrors.KindAuthentication:
		return WebhookErrorResponse{Error: "invalid signature"}
	case appErr.Kind == apperrors.KindValidation:
		return WebhookErrorResponse{Error: appErr.PublicMessage()}
	default:
		return WebhookErrorResponse{Error: "webhook processing failed"}
	}
}
