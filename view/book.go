package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketview/internal/channel"
	"marketview/logger"
	"marketview/models"
	"marketview/processor"
)

// BookView renders one ticker's depth ladder and spread strip.
type BookView struct {
	ticker string
	feed   Feed
	depth  *processor.DepthAggregator
	ch     *channel.Channels
	log    *logger.Log

	mu      sync.RWMutex
	ladder  models.DepthLadder
	spread  models.SpreadMetrics
	hasData bool
}

func NewBookView(ticker string, feed Feed, ch *channel.Channels) *BookView {
	return &BookView{
		ticker: models.NormalizeTicker(ticker),
		feed:   feed,
		depth:  processor.NewDepthAggregator(),
		ch:     ch,
		log:    logger.GetLogger(),
	}
}

// Refresh fetches the book, aggregates it and publishes a DepthUpdate.
// On fetch failure the previous ladder stays in place.
func (v *BookView) Refresh(ctx context.Context) error {
	snap, err := v.feed.OrderBook(ctx, v.ticker)
	if err != nil {
		return fmt.Errorf("refresh book %s: %w", v.ticker, err)
	}

	ladder := v.depth.Aggregate(snap)
	spread := processor.ComputeSpread(v.ticker, ladder)

	v.mu.Lock()
	v.ladder = ladder
	v.spread = spread
	v.hasData = true
	v.mu.Unlock()

	v.ch.SendDepth(ctx, models.DepthUpdate{
		UpdateID:  uuid.NewString(),
		Ticker:    v.ticker,
		Ladder:    ladder,
		Spread:    spread,
		Timestamp: time.Now().UTC(),
	})

	v.log.WithComponent("book_view").WithFields(logger.Fields{
		"ticker": v.ticker,
		"bids":   len(ladder.Bids),
		"asks":   len(ladder.Asks),
	}).Debug("book refreshed")

	return nil
}

// Snapshot returns the last good ladder and spread, if any.
func (v *BookView) Snapshot() (models.DepthLadder, models.SpreadMetrics, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ladder, v.spread, v.hasData
}
