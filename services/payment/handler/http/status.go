package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/piresc/payrelay/internal/utils"
)

// StatusResponse is the body returned for a status query
type StatusResponse struct {
	Success bool                            `json:"success"`
	Status  models.TransactionStatus        `json:"status"`
	Message string                          `json:"message"`
	Data    *models.TransactionStatusResult `json:"data"`
}

// GetTransactionStatus reports the status of the reference in the path
func (h *PaymentHandler) GetTransactionStatus(c echo.Context) error {
	reference := c.Param("reference")
	if reference == "" {
		return utils.BadRequestResponse(c, "reference is required")
	}

	result, err := h.paymentUC.GetTransactionStatus(c.Request().Context(), reference)
	if err != nil {
		return utils.AppErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Success: true,
		Status:  result.Status,
		Message: result.Message,
		Data:    result,
	})
}
