package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/infrastructure/resilience"
)

// HTTPStatusError is returned when the Ollama server answers with a non-2xx
// status. It keeps the raw status and a body excerpt for diagnostics.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, body)
}

var (
	retryAndRecord = resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	giveUpSilently = resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	giveUpRecorded = resilience.ErrorClassification{Retryable: false, RecordFailure: true}
)

// classifyOllamaError tells the executor how to treat a failed call. Context
// cancellation belongs to the caller and never counts against the breaker.
// Overload statuses and transport failures are worth retrying; anything else
// is a model or request problem that a retry will not change.
func classifyOllamaError(err error) resilience.ErrorClassification {
	var (
		statusErr *HTTPStatusError
		netErr    net.Error
	)
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return giveUpSilently
	case resilience.IsCircuitOpen(err):
		return retryAndRecord
	case errors.As(err, &statusErr):
		if retryableStatus(statusErr.StatusCode) {
			return retryAndRecord
		}
		return giveUpSilently
	case errors.As(err, &netErr):
		return retryAndRecord
	default:
		return giveUpRecorded
	}
}

// wrapTemporaryIfNeeded tags transient failures with the temporary error kind
// so callers up the stack can map them to a retry-later response.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyOllamaError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func retryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
