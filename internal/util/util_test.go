package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryIfStopsOnFatal(t *testing.T) {
	fatal := errors.New("fatal error")
	attempts := 0

	err := RetryIf(context.Background(), 5, 0, func() error {
		attempts++
		return fatal
	}, func(err error) bool {
		return !errors.Is(err, fatal)
	})

	if !errors.Is(err, fatal) {
		t.Fatalf("RetryIf returned %v, want fatal error", err)
	}
	if attempts != 1 {
		t.Errorf("RetryIf called fn %d times, want 1 (no retry on fatal)", attempts)
	}
}

func TestNextDue(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		want time.Time
	}{
		{
			name: "mid-month",
			last: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			want: time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "jan 31 leap year clamps to feb 29",
			last: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 non-leap year clamps to feb 28",
			last: time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "march 31 clamps to april 30",
			last: time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
			want: time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC),
		},
		{
			name: "december rolls over the year",
			last: time.Date(2024, 12, 10, 6, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDue(tt.last)
			if !got.Equal(tt.want) {
				t.Errorf("NextDue(%v) = %v, want %v", tt.last, got, tt.want)
			}
		})
	}
}

func TestIsDue(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		now  time.Time
		want bool
	}{
		{
			name: "zero last is always due",
			now:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "same month not due",
			last: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "exactly one month due",
			last: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "one second before boundary not due",
			last: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 7, 1, 11, 59, 59, 0, time.UTC),
			want: false,
		},
		{
			name: "jan 31 invoked feb 28 of leap year not due",
			last: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			want: false,
		},
		{
			name: "jan 31 invoked feb 29 of leap year due",
			last: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
			want: true,
		},
		{
			name: "well past due",
			last: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			now:  time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDue(tt.last, tt.now); got != tt.want {
				t.Errorf("IsDue(%v, %v) = %v, want %v", tt.last, tt.now, got, tt.want)
			}
		})
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should not block or fail: %v", err)
	}
}
