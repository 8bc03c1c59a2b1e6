package observability

import (
	"strings"
	"unicode"
)

const (
	maxRouteLength  = 180
	maxMethodLength = 10
	maxUserIDLength = 64
)

// logSafe strips control characters so attacker-supplied values cannot inject
// log lines, and caps the length.
func logSafe(value string, limit int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if limit > 0 && len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}

func logSafeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, maxRouteLength)
}

func logSafeMethod(method string) string {
	return logSafe(method, maxMethodLength)
}

func logSafeUserID(uid string) string {
	return logSafe(uid, maxUserIDLength)
}
