package routing

import (
	"context"
	"time"
)

// TraceStatus is the lifecycle state of a traced request.
type TraceStatus string

const (
	TracePending TraceStatus = "pending"
	TraceSuccess TraceStatus = "success"
	TraceError   TraceStatus = "error"
)

// TraceEntry describes one request attempt for the dev inspector. The same ID
// is emitted twice: once pending, once settled.
type TraceEntry struct {
	ID           string            `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Mode         TransportMode     `json:"mode"`
	RequestData  map[string]string `json:"requestData,omitempty"`
	ResponseData *RawRouteResponse `json:"responseData,omitempty"`
	Status       TraceStatus       `json:"status"`
	DurationMs   *int64            `json:"durationMs,omitempty"`
	Error        string            `json:"error,omitempty"`

	// OriginCell and DestinationCell are geohash cells of the endpoints.
	OriginCell      string `json:"originCell,omitempty"`
	DestinationCell string `json:"destinationCell,omitempty"`
}

// TraceFunc receives trace entries. It must not block.
type TraceFunc func(TraceEntry)

type contextKey int

const (
	traceKey contextKey = iota
	localeKey
)

// WithTrace returns a context whose requests are reported to fn in addition
// to any client-level trace function.
func WithTrace(ctx context.Context, fn TraceFunc) context.Context {
	return context.WithValue(ctx, traceKey, fn)
}

// TraceFromContext extracts the function stored by WithTrace, if present.
func TraceFromContext(ctx context.Context) (TraceFunc, bool) {
	fn, ok := ctx.Value(traceKey).(TraceFunc)
	return fn, ok && fn != nil
}

// WithLocale returns a context whose requests report errors in locale
// instead of the client's configured language.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey, locale)
}

// MessagesFromContext returns the table for the locale stored by WithLocale,
// or fallback when the context carries none.
func MessagesFromContext(ctx context.Context, fallback Messages) Messages {
	if locale, ok := ctx.Value(localeKey).(string); ok && locale != "" {
		return MessagesFor(locale)
	}
	return fallback
}
