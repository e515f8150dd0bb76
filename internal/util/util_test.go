package util

import (
	"context"
	"errors"
	"log/slog"
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
	sentinel := errors.New("persistent error")
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return sentinel
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Retry error %v does not wrap the last attempt error", err)
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRateLimiterFirstCallImmediate(t *testing.T) {
	rl := NewRateLimiter(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
}

func TestTradingCalendarWeekend(t *testing.T) {
	tc := NewTradingCalendar()

	saturday := time.Date(2025, 3, 8, 10, 0, 0, 0, tc.Location())
	if tc.IsTradingDay(saturday) {
		t.Error("Saturday should not be a trading day")
	}
	if tc.IsMarketOpen(saturday) {
		t.Error("market should be closed on Saturday")
	}

	monday := time.Date(2025, 3, 10, 10, 0, 0, 0, tc.Location())
	if !tc.IsTradingDay(monday) {
		t.Error("Monday should be a trading day")
	}
	if !tc.IsMarketOpen(monday) {
		t.Error("market should be open Monday 10:00")
	}
}

func TestTradingCalendarSessionBounds(t *testing.T) {
	tc := NewTradingCalendar()

	beforeOpen := time.Date(2025, 3, 10, 8, 59, 0, 0, tc.Location())
	if tc.IsMarketOpen(beforeOpen) {
		t.Error("market should be closed at 08:59")
	}
	afterClose := time.Date(2025, 3, 10, 13, 30, 0, 0, tc.Location())
	if tc.IsMarketOpen(afterClose) {
		t.Error("market should be closed at 13:30")
	}
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	tc := NewTradingCalendar()

	fridayAfternoon := time.Date(2025, 3, 7, 14, 0, 0, 0, tc.Location())
	got := tc.NextOpen(fridayAfternoon)
	want := time.Date(2025, 3, 10, 9, 0, 0, 0, tc.Location())
	if !got.Equal(want) {
		t.Errorf("NextOpen = %v, want %v", got, want)
	}
}

func TestPrevTradingDay(t *testing.T) {
	tc := NewTradingCalendar()

	monday := time.Date(2025, 3, 10, 10, 0, 0, 0, tc.Location())
	got := tc.PrevTradingDay(monday)
	want := time.Date(2025, 3, 7, 0, 0, 0, 0, tc.Location())
	if !got.Equal(want) {
		t.Errorf("PrevTradingDay = %v, want %v", got, want)
	}
}
