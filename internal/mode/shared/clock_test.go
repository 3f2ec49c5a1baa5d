package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatAgo(t *testing.T) {
	now := time.Date(2025, 12, 13, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    time.Time
		expected string
	}{
		{"exact", now, "just now"},
		{"future", now.Add(time.Minute), "just now"},
		{"sub-second", now.Add(-500 * time.Millisecond), "just now"},
		{"1s boundary", now.Add(-time.Second), "1s ago"},
		{"59s", now.Add(-59 * time.Second), "59s ago"},
		{"1m boundary", now.Add(-time.Minute), "1m ago"},
		{"59m", now.Add(-59 * time.Minute), "59m ago"},
		{"1h boundary", now.Add(-time.Hour), "1h ago"},
		{"23h", now.Add(-23 * time.Hour), "23h ago"},
		{"1d boundary", now.Add(-24 * time.Hour), "1d ago"},
		{"10d", now.Add(-10 * 24 * time.Hour), "10d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatAgo(tt.input, now))
		})
	}
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func TestFormatAgoWithClock(t *testing.T) {
	now := time.Date(2025, 12, 13, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "3m ago", FormatAgoWithClock(now.Add(-3*time.Minute), fixedClock(now)))
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	require.False(t, got.Before(before))
}
