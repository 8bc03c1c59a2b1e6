package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/north-market/api/internal/platform/requestctx"
)

const (
	maxCodeLength    = 80
	maxMessageLength = 512
	maxTraceLength   = 64
)

// Error is the JSON error envelope returned by every endpoint. Detail entries
// are flattened into the top-level object next to error/message/status.
type Error struct {
	Code      string
	Message   string
	Status    int
	RequestID string
	TraceID   string
	Details   map[string]any
}

// NewError constructs an Error with the given code, message, and HTTP status.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    scrub(code, maxCodeLength),
		Message: scrub(message, maxMessageLength),
		Status:  status,
	}
}

// WithRequestID overrides the request id taken from the context.
func (e Error) WithRequestID(id string) Error {
	e.RequestID = scrub(id, maxCodeLength)
	return e
}

// WithTraceID overrides the trace id taken from the context.
func (e Error) WithTraceID(id string) Error {
	e.TraceID = scrub(id, maxTraceLength)
	return e
}

// WithDetails attaches extra fields to the envelope.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(details))
	for key, value := range details {
		merged[key] = value
	}
	e.Details = merged
	return e
}

// WriteError renders the error envelope, filling request and trace ids from
// the context when the error does not carry them.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := map[string]any{
		"error":   err.Code,
		"message": err.Message,
		"status":  status,
	}
	for key, value := range err.Details {
		body[key] = value
	}

	if requestID := firstNonEmpty(err.RequestID, scrub(middleware.GetReqID(ctx), maxCodeLength)); requestID != "" {
		body["request_id"] = requestID
	}
	if traceID := firstNonEmpty(err.TraceID, scrub(requestctx.TraceID(ctx), maxTraceLength)); traceID != "" {
		body["trace_id"] = traceID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var newlineReplacer = strings.NewReplacer("\n", " ", "\r", " ")

func scrub(value string, limit int) string {
	value = strings.TrimSpace(newlineReplacer.Replace(value))
	if limit > 0 && len(value) > limit {
		value = value[:limit]
	}
	return value
}
