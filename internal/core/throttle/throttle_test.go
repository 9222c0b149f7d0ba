package throttle

import (
	"context"
	"errors"
	"testing"
	"time"

	"trendsetl/internal/platform/testkit"
)

func fakePacer(interval time.Duration) (*Pacer, *testkit.Clock, *[]time.Duration) {
	clk := testkit.NewClock(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
	var sleeps []time.Duration
	p := New(interval,
		WithClock(clk.Now),
		WithSleeper(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			clk.Advance(d)
			return nil
		}),
	)
	return p, clk, &sleeps
}

func TestPacer_SpacesCalls(t *testing.T) {
	t.Parallel()

	p, _, sleeps := fakePacer(2 * time.Second)
	for range 3 {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != 2*time.Second || (*sleeps)[1] != 2*time.Second {
		t.Fatalf("sleeps = %v", *sleeps)
	}
	waits, slept := p.Stats()
	if waits != 3 || slept != 4*time.Second {
		t.Fatalf("stats = %d, %v", waits, slept)
	}
}

func TestPacer_SlowWorkNeedsNoSleep(t *testing.T) {
	t.Parallel()

	p, clk, sleeps := fakePacer(2 * time.Second)
	_ = p.Wait(context.Background())
	clk.Advance(5 * time.Second)
	_ = p.Wait(context.Background())
	if len(*sleeps) != 0 {
		t.Fatalf("sleeps = %v", *sleeps)
	}

	// partial credit: 500ms elapsed, 1.5s left
	clk.Advance(500 * time.Millisecond)
	_ = p.Wait(context.Background())
	if len(*sleeps) != 1 || (*sleeps)[0] != 1500*time.Millisecond {
		t.Fatalf("sleeps = %v", *sleeps)
	}
}

func TestPacer_Disabled(t *testing.T) {
	t.Parallel()

	p, _, sleeps := fakePacer(0)
	for range 5 {
		_ = p.Wait(context.Background())
	}
	if len(*sleeps) != 0 {
		t.Fatalf("disabled pacer slept %v", *sleeps)
	}
	if p.Interval() != 0 {
		t.Fatalf("interval = %v", p.Interval())
	}
}

func TestPacer_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(time.Second)
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestPacer_SleepErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("deadline")
	clk := testkit.NewClock(time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC))
	p := New(time.Second, WithClock(clk.Now), WithSleeper(func(context.Context, time.Duration) error { return boom }))
	_ = p.Wait(context.Background())
	if err := p.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if _, slept := p.Stats(); slept != 0 {
		t.Fatalf("slept = %v", slept)
	}
}

func TestSleepCtx(t *testing.T) {
	t.Parallel()

	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleepCtx: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
