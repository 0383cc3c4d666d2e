package cli

import (
	"fmt"
	"time"
)

func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

// parseTimestamp accepts RFC 3339 or a bare date, read as UTC midnight.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want RFC 3339, e.g. 2024-06-01T09:00:00Z)", s)
}
