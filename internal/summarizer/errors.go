package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
)

const errorMarkerPrefix = "Error: "

type ErrorKind string

const (
	KindInvalidInput ErrorKind = "invalid input"
	KindAuth         ErrorKind = "authentication"
	KindRateLimit    ErrorKind = "rate limit"
	KindServer       ErrorKind = "server"
	KindRequest      ErrorKind = "request"
	KindNetwork      ErrorKind = "network"
	KindMalformed    ErrorKind = "malformed response"
	KindCanceled     ErrorKind = "canceled"
	KindUnknown      ErrorKind = "unknown"
)

// CompletionError is a failed summary for one row. It never aborts a batch.
type CompletionError struct {
	Kind ErrorKind
	// StatusCode is the HTTP status returned by the API, if any.
	StatusCode int
	Attempts   int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("%s error after %d attempts: %v", e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *CompletionError) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindServer, KindNetwork, KindMalformed:
		return true
	default:
		return false
	}
}

// ErrorMarker renders err as the one-line placeholder stored in the
// Formatted column of a failed row.
func ErrorMarker(err error) string {
	if err == nil {
		return errorMarkerPrefix + "unknown failure"
	}
	return errorMarkerPrefix + strings.Join(strings.Fields(err.Error()), " ")
}

// IsErrorMarker reports whether a Formatted value is a failure placeholder.
func IsErrorMarker(formatted string) bool {
	return strings.HasPrefix(formatted, errorMarkerPrefix)
}

func classify(err error, attempts int) *CompletionError {
	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		copied := *completionErr
		copied.Attempts = attempts
		return &copied
	}

	cerr := &CompletionError{Kind: KindUnknown, Attempts: attempts, Err: err}

	var apiErr *openai.Error
	var netErr net.Error

	switch {
	case errors.Is(err, context.Canceled):
		cerr.Kind = KindCanceled
	case errors.Is(err, ErrEmptyOutput), errors.Is(err, ErrMalformedOutput):
		cerr.Kind = KindMalformed
	case errors.As(err, &apiErr):
		cerr.StatusCode = apiErr.StatusCode
		cerr.Kind = kindForStatus(apiErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		cerr.Kind = KindNetwork
	}

	return cerr
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusConflict, status >= http.StatusInternalServerError:
		return KindServer
	default:
		return KindRequest
	}
}
