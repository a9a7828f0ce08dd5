package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig signals missing or contradictory credentials. Fatal at startup.
	ErrConfig = errors.New("invalid configuration")
	// ErrAuth signals a signing or token exchange failure.
	ErrAuth = errors.New("authentication failed")
	// ErrTransport signals a network failure, timeout or non-2xx response.
	ErrTransport = errors.New("transport error")
	// ErrResponse signals an API-level error payload returned with a 2xx status.
	ErrResponse = errors.New("api response error")
	// ErrInternal signals an unexpected failure while checking an account.
	ErrInternal = errors.New("internal error")
)

// APIError wraps ErrTransport with the HTTP status returned by the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", ErrTransport.Error(), e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrTransport.Error(), e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return ErrTransport }

// NewAPIError creates an APIError for a non-2xx response.
func NewAPIError(statusCode int, message string) error {
	return &APIError{StatusCode: statusCode, Message: message}
}

// ResponseError wraps ErrResponse with the error messages carried by the payload.
type ResponseError struct {
	Messages []string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrResponse.Error(), strings.Join(e.Messages, "; "))
}

func (e *ResponseError) Unwrap() error { return ErrResponse }

// NewResponseError creates a ResponseError from payload error messages.
func NewResponseError(messages ...string) error {
	return &ResponseError{Messages: messages}
}
