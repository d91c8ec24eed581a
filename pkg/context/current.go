package context

import (
	"context"
)

// Current describes the request being served. It travels in the request
// context and is never shared between requests.
type Current struct {
	RequestID string
	Method    string
	Path      string
	ClientIP  string
	UserAgent string
}

type contextKey string

const currentKey contextKey = "current"

func WithCurrent(ctx context.Context, current *Current) context.Context {
	return context.WithValue(ctx, currentKey, current)
}

func FromContext(ctx context.Context) (*Current, bool) {
	current, ok := ctx.Value(currentKey).(*Current)
	return current, ok
}

// GetCurrent returns the request description, or an empty one outside a request.
func GetCurrent(ctx context.Context) *Current {
	if current, ok := FromContext(ctx); ok {
		return current
	}

	return &Current{}
}

// RequestID is a shorthand for GetCurrent(ctx).RequestID.
func RequestID(ctx context.Context) string {
	return GetCurrent(ctx).RequestID
}
