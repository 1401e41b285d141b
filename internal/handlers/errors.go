package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/gateway"
	"github.com/alimgiray/ghmirror/internal/models"
	"github.com/alimgiray/ghmirror/internal/services"
	"github.com/alimgiray/ghmirror/pkg/logger"
)

// statusFor maps a service error to an HTTP status and a client-facing message
func statusFor(err error) (int, string) {
	var validationErr *models.ValidationError
	var fetchErr *gateway.TransientFetchError
	var malformedErr *gateway.MalformedResponseError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.Is(err, gateway.ErrTargetNotFound),
		errors.Is(err, gateway.ErrUserNotFound),
		errors.Is(err, services.ErrTargetNotTracked):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, gateway.ErrHostNotConfigured):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, gateway.ErrBadCredentials):
		return http.StatusBadGateway, "GitHub rejected the configured credentials"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "GitHub did not answer in time"
	case errors.As(err, &fetchErr), errors.As(err, &malformedErr):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// respondError writes err as a JSON error body
func respondError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message})
}
