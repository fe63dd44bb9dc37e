package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingFile         = errors.New("missing file")
	ErrUploadRejected      = errors.New("upload rejected")
	ErrNetworkFailure      = errors.New("network failure")
	ErrNoDocumentSelected  = errors.New("no document selected")
	ErrAskRejected         = errors.New("ask rejected")
	ErrDocumentUnavailable = errors.New("document unavailable")
	ErrContextUnavailable  = errors.New("document state is not available in this context")
	ErrBusy                = errors.New("request already in flight")
	ErrFlowClosed          = errors.New("flow closed")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Outcome maps an error to a stable label for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsKind(err, ErrFlowClosed), errors.Is(err, context.Canceled):
		return "closed"
	case IsKind(err, ErrBusy):
		return "busy"
	case IsKind(err, ErrMissingFile):
		return "missing_file"
	case IsKind(err, ErrUploadRejected):
		return "upload_rejected"
	case IsKind(err, ErrNoDocumentSelected):
		return "no_document"
	case IsKind(err, ErrAskRejected):
		return "ask_rejected"
	case IsKind(err, ErrDocumentUnavailable):
		return "document_unavailable"
	case IsKind(err, ErrNetworkFailure):
		return "network_failure"
	default:
		return "error"
	}
}
