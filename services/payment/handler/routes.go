package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/payrelay/internal/pkg/models"
	nrpkg "github.com/piresc/payrelay/internal/pkg/newrelic"
	"github.com/piresc/payrelay/services/payment"
	httpHandler "github.com/piresc/payrelay/services/payment/handler/http"
)

// HTTPHandler combines all handlers for the payment service
type HTTPHandler struct {
	paymentHTTP *httpHandler.PaymentHandler
}

// NewHTTPHandler creates a new combined handler
func NewHTTPHandler(paymentUC payment.PaymentUC, cfg *models.Config) *HTTPHandler {
	return &HTTPHandler{
		paymentHTTP: httpHandler.NewPaymentHandler(paymentUC, cfg.Payment.WebhookMaxBodyBytes),
	}
}

// RegisterRoutes registers all HTTP routes
func (h *HTTPHandler) RegisterRoutes(e *echo.Echo) {
	h.register(e.Group(""))
	// v1 clients use the prefixed paths
	h.register(e.Group("/api/v1"))
}

func (h *HTTPHandler) register(g *echo.Group) {
	g.POST("/payments", nrpkg.TraceHandler("PaymentHandler.InitiatePayment", h.paymentHTTP.InitiatePayment))
	g.GET("/transactions/:reference/status", nrpkg.TraceHandler("PaymentHandler.GetTransactionStatus", h.paymentHTTP.GetTransactionStatus))

	webhook := nrpkg.TraceHandler("PaymentHandler.HandleWebhook", h.paymentHTTP.HandleWebhook)
	g.POST("/webhooks/gateway", webhook)
	g.POST("/webhooks/paystack", webhook)
}
