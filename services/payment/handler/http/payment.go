package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/payrelay/internal/pkg/logger"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/internal/utils"
	"github.com/piresc/payrelay/services/payment"
)

// PaymentHandler handles HTTP requests for payment operations
type PaymentHandler struct {
	paymentUC           payment.PaymentUC
	webhookMaxBodyBytes int64
}

// NewPaymentHandler creates a new payment HTTP handler. A non-positive
// webhookMaxBodyBytes selects the default limit.
func NewPaymentHandler(paymentUC payment.PaymentUC, webhookMaxBodyBytes int64) *PaymentHandler {
	if webhookMaxBodyBytes <= 0 {
		webhookMaxBodyBytes = defaultWebhookMaxBodyBytes
	}
	return &PaymentHandler{
		paymentUC:           paymentUC,
		webhookMaxBodyBytes: webhookMaxBodyBytes,
	}
}

// InitiatePayment creates a payment and returns the checkout URL
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	var req models.InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		logger.WarnCtx(c.Request().Context(), "Failed to bind payment request", logger.Err(err))
		return utils.BadRequestResponse(c, "invalid request body")
	}

	resp, err := h.paymentUC.InitiatePayment(c.Request().Context(), &req)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}

	return utils.SuccessResponse(c, http.StatusOK, "Payment initiated successfully", resp)
}
