// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowMillis returns the current UTC time truncated to millisecond precision,
// the resolution the document store keeps for dates.
func UTCNowMillis() time.Time {
	return UTCNow().Truncate(time.Millisecond)
}

// FormatTimestamp renders t in UTC using TimestampLayout
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
