package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit defines the fallback number of items returned when the client omits limit.
	DefaultLimit = 50
	// DefaultMaxLimit caps the supported limit to prevent unbounded queries.
	DefaultMaxLimit = 100
)

// Params bundles the list parameters extracted from a request query string.
type Params struct {
	Limit    int
	Statuses []string
}

// Options control how Parse behaves for a given handler layer.
type Options struct {
	DefaultLimit    int
	MaxLimit        int
	AllowedStatuses []string
}

var (
	ErrInvalidLimit  = errors.New("pagination: invalid limit")
	ErrInvalidStatus = errors.New("pagination: invalid status")
)

// FromRequest parses the supported query parameters from the supplied request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse consumes the provided query values and returns the normalised Params representation.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	limit, err := parseLimit(values.Get("limit"), opts)
	if err != nil {
		return Params{}, err
	}

	statuses, err := parseStatuses(values["status"], opts.AllowedStatuses)
	if err != nil {
		return Params{}, err
	}

	return Params{Limit: limit, Statuses: statuses}, nil
}

func parseLimit(raw string, opts Options) (int, error) {
	maxLimit := opts.MaxLimit
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	defaultLimit := opts.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}

	if strings.TrimSpace(raw) == "" {
		return defaultLimit, nil
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidLimit)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidLimit)
	}
	if value > maxLimit {
		value = maxLimit
	}
	return value, nil
}

func parseStatuses(values []string, allowed []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: status filtering not supported", ErrInvalidStatus)
	}

	allowedSet := make(map[string]struct{}, len(allowed))
	for _, status := range allowed {
		status = strings.ToUpper(strings.TrimSpace(status))
		if status == "" {
			continue
		}
		allowedSet[status] = struct{}{}
	}

	seen := make(map[string]struct{})
	var statuses []string

	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			status := strings.ToUpper(strings.TrimSpace(part))
			if status == "" {
				continue
			}
			if _, ok := allowedSet[status]; !ok {
				return nil, fmt.Errorf("%w: status %q is not allowed", ErrInvalidStatus, status)
			}
			if _, exists := seen[status]; exists {
				continue
			}
			seen[status] = struct{}{}
			statuses = append(statuses, status)
		}
	}

	return statuses, nil
}
