package channel

import (
	"context"
	"testing"

	"marketview/models"
)

func TestSendAndDrop(t *testing.T) {
	ctx := context.Background()
	c := NewChannels(1, 1, 1, 1)
	defer c.Close()

	if !c.SendDepth(ctx, models.DepthUpdate{Ticker: "ACME"}) {
		t.Fatalf("first send should succeed")
	}
	// Buffer full: the update is dropped, not blocked on.
	if c.SendDepth(ctx, models.DepthUpdate{Ticker: "ACME"}) {
		t.Fatalf("second send should be dropped")
	}

	stats := c.GetStats()
	if stats.DepthSent != 1 || stats.DepthDropped != 1 {
		t.Fatalf("stats = %+v, want 1 sent / 1 dropped", stats)
	}

	got := <-c.Depth
	if got.Ticker != "ACME" {
		t.Fatalf("unexpected update: %+v", got)
	}
}

func TestSendCancelledContext(t *testing.T) {
	c := NewChannels(1, 1, 1, 1)
	defer c.Close()

	// Fill the candle buffer, then cancel.
	ctx, cancel := context.WithCancel(context.Background())
	if !c.SendCandles(ctx, models.CandleUpdate{Ticker: "ACME"}) {
		t.Fatalf("first send should succeed")
	}
	cancel()
	if c.SendCandles(ctx, models.CandleUpdate{Ticker: "ACME"}) {
		t.Fatalf("send after cancel should fail")
	}
}

func TestLogMetricsAfterSends(t *testing.T) {
	ctx := context.Background()
	c := NewChannels(2, 2, 2, 2)
	defer c.Close()

	if !c.SendDepth(ctx, models.DepthUpdate{Ticker: "ACME"}) {
		t.Fatalf("depth send failed")
	}
	// Counters survive a metrics pass unchanged.
	c.logMetrics()
	if stats := c.GetStats(); stats.DepthSent != 1 {
		t.Fatalf("stats = %+v, want 1 depth sent", stats)
	}
}

func TestAllUpdateKinds(t *testing.T) {
	ctx := context.Background()
	c := NewChannels(2, 2, 2, 2)
	defer c.Close()

	if !c.SendTape(ctx, models.TapeUpdate{Ticker: "ACME"}) {
		t.Fatalf("tape send failed")
	}
	if !c.SendQuotes(ctx, models.QuoteUpdate{}) {
		t.Fatalf("quote send failed")
	}
	stats := c.GetStats()
	if stats.TapeSent != 1 || stats.QuoteSent != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
