package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(hour, min int) time.Time {
	return time.Date(2025, time.March, 14, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want bool
	}{
		{"identical start", at(10, 0), at(10, 0), true},
		{"b inside a", at(10, 0), at(11, 0), true},
		{"a inside b", at(11, 0), at(10, 0), true},
		{"touching end-to-start", at(10, 0), at(12, 0), false},
		{"touching start-to-end", at(12, 0), at(10, 0), false},
		{"one minute overlap", at(10, 0), at(11, 59), true},
		{"disjoint", at(8, 0), at(14, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Overlaps(tt.a, tt.b))
		})
	}
}

func TestSameDate(t *testing.T) {
	require.True(t, SameDate(at(0, 0), at(23, 59)))
	require.False(t, SameDate(at(10, 0), at(10, 0).AddDate(0, 0, 1)))
}
