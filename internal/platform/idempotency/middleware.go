package idempotency

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/north-market/api/internal/platform/auth"
	"github.com/north-market/api/internal/platform/requestctx"
)

const (
	// HeaderName is the request header carrying the client-chosen idempotency key.
	HeaderName = "Idempotency-Key"

	replayHeaderName = "X-Idempotent-Replay"
)

type middlewareConfig struct {
	ttl   time.Duration
	clock func() time.Time
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*middlewareConfig)

// WithTTL configures how long completed idempotency records are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// Middleware enforces idempotency semantics for the wrapped mutating endpoint.
// Requests without the Idempotency-Key header are rejected; a replayed key with
// a matching request fingerprint returns the stored response.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := middlewareConfig{
		ttl:   DefaultTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := requestctx.Logger(ctx)

			key := strings.TrimSpace(r.Header.Get(HeaderName))
			if key == "" {
				respondError(w, http.StatusBadRequest, "idempotency_key_required", "missing idempotency key header")
				return
			}

			body, err := readAndReplayBody(r)
			if err != nil {
				respondError(w, http.StatusInternalServerError, "idempotency_read_body_failed", "unable to read request body")
				return
			}

			requester := requesterID(ctx)
			fingerprint := requestFingerprint(r, body, requester)
			scopedKey := key + "|" + requester
			now := cfg.clock().UTC()

			reservation, err := store.Reserve(ctx, scopedKey, fingerprint, now, cfg.ttl)
			if err != nil {
				if errors.Is(err, ErrFingerprintMismatch) {
					respondError(w, http.StatusConflict, "idempotency_key_conflict", "idempotency key already used for a different request")
					return
				}
				logger.Error("idempotency reserve failed", zap.Error(err))
				respondError(w, http.StatusInternalServerError, "idempotency_store_error", "unable to process idempotency key")
				return
			}

			switch reservation.State {
			case ReservationStateCompleted:
				writeStoredResponse(w, reservation.Record)
				return
			case ReservationStatePending:
				respondError(w, http.StatusConflict, "idempotency_in_progress", "another request is processing this idempotency key")
				return
			}

			recorder := &bufferingRecorder{header: make(http.Header)}
			next.ServeHTTP(recorder, r)

			if err := store.SaveResponse(ctx, scopedKey, fingerprint, recorder.status, recorder.header.Get("Content-Type"), recorder.body.Bytes(), cfg.clock().UTC(), cfg.ttl); err != nil {
				logger.Error("idempotency save failed", zap.Error(err))
				if releaseErr := store.Release(ctx, scopedKey, fingerprint); releaseErr != nil {
					logger.Error("idempotency release failed", zap.Error(releaseErr))
				}
			}

			recorder.flush(w)
		})
	}
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := r.Body.Close(); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requesterID(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		return identity.UserID
	}
	return "anonymous"
}

func requestFingerprint(r *http.Request, body []byte, requester string) string {
	builder := strings.Builder{}
	builder.WriteString(strings.ToUpper(r.Method))
	builder.WriteString("|")
	builder.WriteString(r.URL.Path)
	builder.WriteString("|")
	builder.WriteString(requester)
	builder.WriteString("|")
	if len(body) > 0 {
		sum := sha256.Sum256(body)
		builder.WriteString(hex.EncodeToString(sum[:]))
	}

	sum := sha256.Sum256([]byte(builder.String()))
	return hex.EncodeToString(sum[:])
}

func writeStoredResponse(w http.ResponseWriter, record Record) {
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.Header().Set(replayHeaderName, "true")

	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(record.ResponseBody) > 0 {
		_, _ = w.Write(record.ResponseBody)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   code,
		"message": message,
		"status":  status,
	})
}

type bufferingRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *bufferingRecorder) Header() http.Header {
	return r.header
}

func (r *bufferingRecorder) WriteHeader(status int) {
	if r.status == 0 && status > 0 {
		r.status = status
	}
}

func (r *bufferingRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *bufferingRecorder) flush(w http.ResponseWriter) {
	dst := w.Header()
	for key, values := range r.header {
		dst[key] = values
	}

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if r.body.Len() > 0 {
		_, _ = w.Write(r.body.Bytes())
	}
}
