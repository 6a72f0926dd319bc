package httpapi

import (
	"context"
	"errors"
	"net/http"

	"leadpipe/internal/activity"
	"leadpipe/internal/automation"
	"leadpipe/internal/crm"
	"leadpipe/internal/leads"
	"leadpipe/internal/messaging"
	"leadpipe/internal/reporting"
	"leadpipe/pkg/logger"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, leads.ErrNotFound), errors.Is(err, automation.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, leads.ErrValidation),
		errors.Is(err, automation.ErrInvalidRule),
		errors.Is(err, activity.ErrInvalidActivity),
		errors.Is(err, reporting.ErrInvalidRequest),
		errors.Is(err, messaging.ErrTemplateNotFound):
		return http.StatusBadRequest
	case errors.Is(err, leads.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, messaging.ErrBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, crm.ErrOperationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError maps domain errors to status codes. Internal errors are
// logged and never echoed to the client.
func abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.AbortWithStatusJSON(code, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
