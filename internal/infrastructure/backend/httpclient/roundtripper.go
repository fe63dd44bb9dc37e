package httpclient

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const requestIDHeader = "X-Request-Id"

// NewTransport decorates base with client-side rate limiting, request ids and an access log.
func NewTransport(base http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &loggingTransport{base: base, limiter: limiter}
}

type loggingTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(r.Context()); err != nil {
			return nil, err
		}
	}

	req := r
	requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
		req = r.Clone(r.Context())
		req.Header.Set(requestIDHeader, requestID)
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	logAttrs := []any{
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err != nil {
		slog.Error("http_client_request", append(logAttrs, "error", err.Error())...)
		return nil, err
	}

	logAttrs = append(logAttrs, "status", resp.StatusCode)
	switch {
	case resp.StatusCode >= 500:
		slog.Error("http_client_request", logAttrs...)
	case resp.StatusCode >= 400:
		slog.Warn("http_client_request", logAttrs...)
	default:
		slog.Debug("http_client_request", logAttrs...)
	}
	return resp, nil
}
