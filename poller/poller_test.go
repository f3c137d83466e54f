package poller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartRunsMountRefresh(t *testing.T) {
	var calls atomic.Int64
	p := New("book:ACME", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	// The first refresh fires immediately, not after the first interval.
	waitFor(t, "mount refresh", func() bool {
		st := p.State()
		return !st.LastUpdated.IsZero() && !st.IsRefreshing
	})
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if st := p.State(); st.Error != "" {
		t.Fatalf("unexpected error state: %q", st.Error)
	}
}

func TestDoubleStart(t *testing.T) {
	p := New("book:ACME", time.Hour, func(ctx context.Context) error { return nil })
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(context.Background()); err == nil {
		t.Fatalf("second Start should fail")
	}
}

func TestSlowRefreshSkipsTicks(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	p := New("book:ACME", 15*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Several intervals pass while the first fetch is stuck. Ticks must
	// be dropped rather than queueing concurrent fetches.
	waitFor(t, "skipped ticks", func() bool { return p.SkippedTicks() >= 3 })
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 while fetch in flight", got)
	}

	close(release)
	p.Stop()
}

func TestFailureKeepsLastUpdated(t *testing.T) {
	results := make(chan error, 3)
	p := New("tape:ACME", 15*time.Millisecond, func(ctx context.Context) error {
		select {
		case err := <-results:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	results <- nil
	waitFor(t, "successful refresh", func() bool { return !p.State().LastUpdated.IsZero() })
	lastGood := p.State().LastUpdated

	results <- errors.New("backend down")
	waitFor(t, "error recorded", func() bool { return p.State().Error != "" })
	st := p.State()
	if st.Error != "backend down" {
		t.Fatalf("error = %q", st.Error)
	}
	if !st.LastUpdated.Equal(lastGood) {
		t.Fatalf("LastUpdated moved on failure: %v -> %v", lastGood, st.LastUpdated)
	}

	// The next successful tick clears the error again.
	results <- nil
	waitFor(t, "error cleared", func() bool {
		st := p.State()
		return st.Error == "" && st.LastUpdated.After(lastGood)
	})
}

func TestStopInvalidatesInFlightRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int64
	p := New("quotes", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-entered
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	p.Stop()

	// The fetch completed after teardown; its result must not have been
	// applied and the state is back to its zero value.
	st := p.State()
	if !st.LastUpdated.IsZero() || st.Error != "" || st.IsRefreshing {
		t.Fatalf("state mutated after Stop: %+v", st)
	}

	time.Sleep(40 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d after Stop, want 1", got)
	}
}

func TestStopIdempotent(t *testing.T) {
	p := New("book:ACME", time.Hour, func(ctx context.Context) error { return nil })
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Stop()
	p.Stop()
}
