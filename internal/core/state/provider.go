package state

import (
	"context"
	"errors"

	"github.com/kirillkom/docqa-client/internal/core/domain"
	"github.com/kirillkom/docqa-client/internal/core/ports"
)

type contextKey struct{}

// WithDocumentState returns a derived context that carries the document state capability.
// Components below it reach the state through FromContext.
func WithDocumentState(ctx context.Context, s ports.DocumentState) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the capability installed by WithDocumentState.
func FromContext(ctx context.Context) (ports.DocumentState, error) {
	if ctx == nil {
		return nil, domain.WrapError(domain.ErrContextUnavailable, "document state", errors.New("nil context"))
	}
	s, ok := ctx.Value(contextKey{}).(ports.DocumentState)
	if !ok || s == nil {
		return nil, domain.WrapError(domain.ErrContextUnavailable, "document state", errors.New("use WithDocumentState before reading it"))
	}
	return s, nil
}

// MustFromContext is FromContext for wiring code; a missing provider is a programming error.
func MustFromContext(ctx context.Context) ports.DocumentState {
	s, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return s
}
