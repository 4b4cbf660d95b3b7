package deliver

import (
	"testing"
	"time"
)

func TestRetryDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 1 * time.Second},
		{attempt: 2, want: 2 * time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 4, want: 8 * time.Second},
		{attempt: 5, want: 16 * time.Second},
		{attempt: 6, want: 30 * time.Second},
		{attempt: 10, want: 30 * time.Second},
		{attempt: 64, want: 30 * time.Second},
	}

	for _, tc := range cases {
		if got := RetryDelay(tc.attempt); got != tc.want {
			t.Errorf("RetryDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestRetryDelayClampsBadInput(t *testing.T) {
	if got := RetryDelay(0); got != 1*time.Second {
		t.Errorf("RetryDelay(0) = %s, want 1s", got)
	}
	if got := RetryDelay(-3); got != 1*time.Second {
		t.Errorf("RetryDelay(-3) = %s, want 1s", got)
	}
}
