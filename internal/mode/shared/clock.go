// Package shared provides types and helpers shared by playground views.
package shared

import (
	"fmt"
	"time"
)

// Clock provides the current time. Use RealClock for production
// and mocks.MockClock for testing.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// FormatAgoWithClock returns a short relative timestamp using the provided clock.
func FormatAgoWithClock(t time.Time, clock Clock) string {
	return FormatAgo(t, clock.Now())
}

// FormatAgo returns a short relative timestamp for t as seen at now.
// Examples: "just now", "12s ago", "5m ago", "3h ago", "2d ago".
func FormatAgo(t, now time.Time) string {
	d := now.Sub(t)

	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
