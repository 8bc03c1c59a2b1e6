// Package requestctx carries request-scoped values (logger, trace metadata)
// through context without leaking the storage keys to callers.
package requestctx

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

type traceKey struct{}

var nop = zap.NewNop()

// TraceInfo holds the identifiers extracted from an incoming traceparent header.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// WithLogger returns a context carrying the given logger. A nil logger is
// replaced with the shared no-op instance so lookups never return nil.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = nop
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the context's logger, or a no-op logger when none was set.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return nop
	}
	logger, _ := ctx.Value(loggerKey{}).(*zap.Logger)
	if logger == nil {
		return nop
	}
	return logger
}

// NoopLogger returns the shared no-op instance, letting callers detect an
// unset logger by identity.
func NoopLogger() *zap.Logger { return nop }

// WithTrace returns a context carrying the trace metadata.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey{}, info)
}

// Trace reports the trace metadata stored on the context, if any.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey{}).(TraceInfo)
	return info, ok
}

// TraceID is a shorthand for the trace identifier alone.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}
