package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func NewAPIErrorWithDetails(code int, message, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

var (
	ErrInvalidRequest = NewAPIError(http.StatusBadRequest, "Invalid request")
	ErrUnauthorized   = NewAPIError(http.StatusUnauthorized, "Unauthorized")
	ErrForbidden      = NewAPIError(http.StatusForbidden, "Forbidden")
)

var (
	ErrItemNotFound = NewAPIError(http.StatusNotFound, "Catalog item not found")
	ErrInvalidPrice = NewAPIError(http.StatusBadRequest, "Item has no valid price")
	ErrOutOfStock   = NewAPIError(http.StatusBadRequest, "No activation keys available")
	ErrMissingEmail = NewAPIError(http.StatusBadRequest, "Buyer email is required")
)

var (
	ErrPaymentInitFailed = NewAPIError(http.StatusBadGateway, "Payment initiation failed")
	ErrProviderTimeout   = NewAPIError(http.StatusGatewayTimeout, "Payment provider timeout")
)

var (
	ErrWebhookInvalidSignature = NewAPIError(http.StatusForbidden, "Invalid webhook signature")
	ErrWebhookInvalidPayload   = NewAPIError(http.StatusBadRequest, "Invalid webhook payload")
)

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

func GetHTTPStatusFromError(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}

	errorStr := err.Error()
	if strings.Contains(errorStr, "not found") {
		return http.StatusNotFound
	}
	if strings.Contains(errorStr, "unauthorized") {
		return http.StatusUnauthorized
	}
	if strings.Contains(errorStr, "forbidden") {
		return http.StatusForbidden
	}
	if strings.Contains(errorStr, "timeout") {
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

func LogError(ctx context.Context, err error, message string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	fields["error"] = err.Error()

	Error(ctx, message, fields)
}
