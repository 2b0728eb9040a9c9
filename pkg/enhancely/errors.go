package enhancely

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a request did not produce a response.
type ErrorKind int

const (
	// KindProtocol is a non-success status reported by the API.
	KindProtocol ErrorKind = iota
	// KindConfiguration means the client was used before it was configured.
	KindConfiguration
	// KindFormat is a success status whose body could not be decoded.
	KindFormat
	// KindTransport is a connection, TLS or timeout failure.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindConfiguration:
		return "configuration"
	case KindFormat:
		return "format"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrMissingAPIKey is wrapped by the configuration error returned before any request
// is attempted without credentials.
var ErrMissingAPIKey = errors.New("API key not set")

// APIError describes a failed JSON-LD request. StatusCode is 0 when no HTTP response
// was received.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	// Problem holds the RFC 7807 body when the API returned one.
	Problem ProblemDetails
	// RateLimitReset carries the RateLimit-Reset header of a 429 response.
	RateLimitReset string
	Err            error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AsAPIError reports whether err wraps an *APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func missingAPIKeyError() *APIError {
	return &APIError{
		Kind:    KindConfiguration,
		Message: "API key not set. Call SetAPIKey first.",
		Err:     ErrMissingAPIKey,
	}
}

func transportError(cause error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Message: "HTTP request failed: " + cause.Error(),
		Err:     cause,
	}
}
