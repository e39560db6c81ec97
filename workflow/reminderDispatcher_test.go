package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextBackoff_DoublesAndCapsAtTenMinutes(t *testing.T) {
	d := &ReminderDispatcher{InitialBackoff: 5 * time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 5 * time.Second},
		{attempt: 2, want: 10 * time.Second},
		{attempt: 3, want: 20 * time.Second},
		{attempt: 4, want: 40 * time.Second},
		{attempt: 7, want: 320 * time.Second},
		{attempt: 8, want: 10 * time.Minute},
		{attempt: 20, want: 10 * time.Minute},
		{attempt: 100, want: 10 * time.Minute},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, d.nextBackoff(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestExceedsMaxAttempts(t *testing.T) {
	d := &ReminderDispatcher{MaxAttempts: 20}

	require.False(t, d.exceedsMaxAttempts(0))
	require.False(t, d.exceedsMaxAttempts(19))
	require.True(t, d.exceedsMaxAttempts(20))
	require.True(t, d.exceedsMaxAttempts(21))

	// Parking disabled.
	unbounded := &ReminderDispatcher{MaxAttempts: 0}
	require.False(t, unbounded.exceedsMaxAttempts(1000))
}
