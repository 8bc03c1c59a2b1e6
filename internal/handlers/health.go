package handlers

import (
	"context"
	"net/http"
	"time"
)

// ReadinessCheck probes one dependency and returns an error when it is unavailable.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves the /healthz and /readyz endpoints.
type HealthHandlers struct {
	startedAt time.Time
	clock     func() time.Time
	checks    map[string]ReadinessCheck
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthClock overrides the time source, primarily for testing.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthStartedAt records the process start time reported in uptime.
func WithHealthStartedAt(t time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if !t.IsZero() {
			h.startedAt = t
		}
	}
}

// WithReadinessCheck registers a named dependency probe for /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name == "" || check == nil {
			return
		}
		h.checks[name] = check
	}
}

// NewHealthHandlers constructs health endpoints with the provided options.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		startedAt: time.Now(),
		clock:     time.Now,
		checks:    make(map[string]ReadinessCheck),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Healthz reports process liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    now.Sub(h.startedAt).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// Readyz probes registered dependencies and reports per-check status.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := http.StatusOK
	overall := "ok"
	checks := make(map[string]any, len(h.checks))

	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		started := h.clock()
		err := check(checkCtx)
		cancel()

		entry := map[string]any{
			"status":  "ok",
			"latency": h.clock().Sub(started).String(),
		}
		if err != nil {
			entry["status"] = "unavailable"
			entry["error"] = err.Error()
			overall = "unavailable"
			status = http.StatusServiceUnavailable
		}
		checks[name] = entry
	}

	writeJSONResponse(w, status, map[string]any{
		"status": overall,
		"checks": checks,
	})
}
