package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks the address the activation key will be mailed to.
// An empty value is allowed here; presence is the caller's rule.
func ValidateEmail(email, fieldName string) *ValidationError {
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: fieldName, Message: "is not a valid email address"}
	}
	return nil
}

// ValidatePhone accepts the loose formats buyers type: digits with optional
// leading +, spaces, dashes and parentheses, 10 to 15 digits total.
func ValidatePhone(phone, fieldName string) *ValidationError {
	if phone == "" {
		return nil
	}

	digits := 0
	for _, r := range strings.TrimPrefix(phone, "+") {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return &ValidationError{Field: fieldName, Message: "contains invalid characters"}
		}
	}
	if digits < 10 || digits > 15 {
		return &ValidationError{Field: fieldName, Message: "must contain 10 to 15 digits"}
	}
	return nil
}

// ValidateRequestSize rejects oversized bodies before they are read.
func ValidateRequestSize(r *http.Request, maxSize int64) error {
	if r.ContentLength > maxSize {
		return &APIError{
			Code:    http.StatusRequestEntityTooLarge,
			Message: "Request body too large",
		}
	}
	return nil
}
