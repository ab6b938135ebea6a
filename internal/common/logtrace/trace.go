package logtrace

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextIDKey struct{}

// WithContextID tags ctx with the id of the interpreter context serving it.
func WithContextID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextIDKey{}, id)
}

func ContextIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(contextIDKey{}).(string)
	if !ok {
		return ""
	}
	return r
}

// Logger returns the global logger annotated with the context id carried by ctx, if any.
func Logger(ctx context.Context) zerolog.Logger {
	l := log.Logger
	if id := ContextIDFromContext(ctx); id != "" {
		l = l.With().Str("context_id", id).Logger()
	}
	return l
}
