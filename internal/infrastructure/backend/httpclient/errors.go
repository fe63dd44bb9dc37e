package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx backend response.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Detail     string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, e.Status, e.Detail)
}

// RejectionDetail returns the reason the backend gave, if any.
func (e *HTTPStatusError) RejectionDetail() string {
	if e == nil {
		return ""
	}
	return e.Detail
}

// DecodeError is a 2xx response whose body could not be decoded.
type DecodeError struct {
	Operation string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newHTTPStatusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Detail:     extractDetail(body),
	}
}

// extractDetail reads the {"detail": ...} envelope the backend uses for errors.
func extractDetail(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return ""
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return raw
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(envelope.Detail))
}

func classifyBackendError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{RecordFailure: false}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return resilience.ErrorClassification{RecordFailure: isServerSideStatus(statusErr.StatusCode)}
	}

	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapBackendError maps an adapter error onto the domain kinds: a response the
// backend refused becomes rejectKind, anything that never produced one is a
// network failure.
func wrapBackendError(rejectKind error, operation string, err error) error {
	if err == nil {
		return nil
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return domain.WrapError(rejectKind, operation, err)
	}
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return domain.WrapError(rejectKind, operation, err)
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrNetworkFailure, operation, fmt.Errorf("backend unavailable: %w", err))
	}
	return domain.WrapError(domain.ErrNetworkFailure, operation, err)
}

func isServerSideStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	default:
		return statusCode >= 500
	}
}
