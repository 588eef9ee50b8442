package handler

import (
	"errors"
	"net/http"

	"fixtrack/backend/internal/service"
	"fixtrack/backend/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// fail maps domain errors to HTTP statuses. Anything unrecognized is a 500
// with the message passed through.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotAssignee):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrSearchTooShort),
		errors.Is(err, service.ErrMissingReason),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrSplitMismatch),
		errors.Is(err, service.ErrUnbalancedDelivery):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicatePayment),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrAlreadyDelivered),
		errors.Is(err, service.ErrOrderClosed),
		errors.Is(err, service.ErrNotRepaired),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrAlreadyAssigned),
		errors.Is(err, service.ErrOutOfStock),
		errors.Is(err, service.ErrNoPayments):
		status = http.StatusConflict
	}

	c.JSON(status, response.Error(status, err.Error()))
}
