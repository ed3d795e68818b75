package api

import (
	"context"

	"github.com/solatis/rulekeeper/internal/types"
)

// RequestIDHeader carries the request id on HTTP requests and responses, and
// as gRPC metadata (lower-cased).
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id types.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id attached to ctx.
func RequestIDFrom(ctx context.Context) (types.RequestID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(types.RequestID)
	return id, ok
}

// requestIDOrNew accepts a client-supplied id when it is a valid UUID.
func requestIDOrNew(supplied string) types.RequestID {
	if supplied != "" {
		if id, err := types.ParseRequestID(supplied); err == nil {
			return id
		}
	}
	return types.NewRequestID()
}
