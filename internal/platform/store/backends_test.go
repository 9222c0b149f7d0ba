package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/testkit"
)

func TestWaitReady_RetriesWithBackoff(t *testing.T) {
	var pauses []time.Duration
	testkit.Swap(t, &sleep, func(d time.Duration) { pauses = append(pauses, d) })

	calls := 0
	err := waitReady(context.Background(), logger.Logger{}, "postgres", 6, time.Second, func(context.Context) error {
		calls++
		if calls < 6 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("waitReady: %v", err)
	}
	want := []time.Duration{150 * time.Millisecond, 300 * time.Millisecond, 600 * time.Millisecond, 1200 * time.Millisecond, 2 * time.Second}
	if len(pauses) != len(want) {
		t.Fatalf("pauses %v", pauses)
	}
	for i := range want {
		if pauses[i] != want[i] {
			t.Fatalf("pause %d = %v want %v", i, pauses[i], want[i])
		}
	}
}

func TestWaitReady_GivesUp(t *testing.T) {
	testkit.Swap(t, &sleep, func(time.Duration) {})

	boom := errors.New("connection refused")
	err := waitReady(context.Background(), logger.Logger{}, "postgres", 3, time.Second, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err %v", err)
	}
	testkit.MustContain(t, err.Error(), "after 3 attempts")
}

func TestWaitReady_StopsOnCancel(t *testing.T) {
	testkit.Swap(t, &sleep, func(time.Duration) { t.Fatal("slept after cancel") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := waitReady(ctx, logger.Logger{}, "postgres", 5, time.Second, func(c context.Context) error { return c.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err %v", err)
	}
}
