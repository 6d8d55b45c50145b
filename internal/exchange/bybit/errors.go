package bybit

import (
	"fmt"
	"net/http"
)

// BybitError is a classified Bybit v5 API error: a retCode/retMsg pair
// that the adapter's error-classification helpers can branch on.
type BybitError struct {
	Code    int
	Message string
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("bybit API error %d: %s", e.Code, e.Message)
}

// NewBybitError builds a BybitError from a retCode/retMsg pair returned in
// a Bybit response envelope.
func NewBybitError(code int, message string) *BybitError {
	return &BybitError{Code: code, Message: message}
}

const (
	ErrCodeInvalidAPIKey     = 10003
	ErrCodeInvalidSignature  = 10004
	ErrCodeInvalidTimestamp  = 10005
	ErrCodeRateLimitExceeded = 10006
)

// IsRetryableError reports whether err is a Bybit error class worth
// retrying: rate limiting or a transient server-side status.
func IsRetryableError(err error) bool {
	bybitErr, ok := err.(*BybitError)
	if !ok {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeRateLimitExceeded,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsAuthenticationError reports whether err stems from a bad API key,
// signature, or timestamp.
func IsAuthenticationError(err error) bool {
	bybitErr, ok := err.(*BybitError)
	if !ok {
		return false
	}
	switch bybitErr.Code {
	case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature, ErrCodeInvalidTimestamp:
		return true
	}
	return false
}

// IsRateLimitError reports whether err is Bybit's rate-limit rejection.
func IsRateLimitError(err error) bool {
	bybitErr, ok := err.(*BybitError)
	if !ok {
		return false
	}
	return bybitErr.Code == ErrCodeRateLimitExceeded
}
