package pagination

import (
	"errors"
	"net/url"
	"testing"
)

func TestParseDefaultsLimit(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, params.Limit)
	}
}

func TestParseClampsLimitToMax(t *testing.T) {
	values := url.Values{"limit": []string{"500"}}
	params, err := Parse(values, Options{MaxLimit: 25})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.Limit != 25 {
		t.Fatalf("expected limit clamped to 25, got %d", params.Limit)
	}
}

func TestParseRejectsInvalidLimit(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-5"} {
		values := url.Values{"limit": []string{raw}}
		if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("limit %q: expected ErrInvalidLimit, got %v", raw, err)
		}
	}
}

func TestParseStatusesNormalisesAndDeduplicates(t *testing.T) {
	values := url.Values{"status": []string{"pending,shipped", "PENDING"}}
	params, err := Parse(values, Options{AllowedStatuses: []string{"PENDING", "SHIPPED"}})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(params.Statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %v", params.Statuses)
	}
	if params.Statuses[0] != "PENDING" || params.Statuses[1] != "SHIPPED" {
		t.Fatalf("unexpected statuses %v", params.Statuses)
	}
}

func TestParseRejectsUnknownStatus(t *testing.T) {
	values := url.Values{"status": []string{"SHIPPED"}}
	if _, err := Parse(values, Options{AllowedStatuses: []string{"PENDING"}}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestParseRejectsStatusWhenNotSupported(t *testing.T) {
	values := url.Values{"status": []string{"PENDING"}}
	if _, err := Parse(values, Options{}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
