package view

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"marketview/internal/channel"
	"marketview/logger"
	"marketview/models"
	"marketview/processor"
)

// QuotesView renders the quote board for all listed assets. It also serves
// as the reference-price source for tape views whose ticker has no trades.
type QuotesView struct {
	feed Feed
	ch   *channel.Channels
	log  *logger.Log

	mu       sync.RWMutex
	quotes   []models.Quote
	byTicker map[string]models.Quote
}

func NewQuotesView(feed Feed, ch *channel.Channels) *QuotesView {
	return &QuotesView{
		feed:     feed,
		ch:       ch,
		log:      logger.GetLogger(),
		byTicker: make(map[string]models.Quote),
	}
}

// Refresh fetches the quote board and publishes a QuoteUpdate.
func (v *QuotesView) Refresh(ctx context.Context) error {
	rows, err := v.feed.Quotes(ctx)
	if err != nil {
		return fmt.Errorf("refresh quotes: %w", err)
	}

	quotes := processor.NormalizeQuotes(rows)

	v.mu.Lock()
	v.quotes = quotes
	v.byTicker = make(map[string]models.Quote, len(quotes))
	for _, q := range quotes {
		v.byTicker[q.Ticker] = q
	}
	v.mu.Unlock()

	v.ch.SendQuotes(ctx, models.QuoteUpdate{
		UpdateID:  uuid.NewString(),
		Quotes:    quotes,
		Timestamp: time.Now().UTC(),
	})

	v.log.WithComponent("quotes_view").WithFields(logger.Fields{
		"quotes": len(quotes),
	}).Debug("quote board refreshed")

	return nil
}

// ReferencePrice returns the current price for a ticker when the feed
// actually quoted one. A quote row without a price yields no reference.
func (v *QuotesView) ReferencePrice(ticker string) (*decimal.Decimal, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	quote, ok := v.byTicker[models.NormalizeTicker(ticker)]
	if !ok || !quote.HasPrice {
		return nil, false
	}
	price := quote.CurrentPrice
	return &price, true
}

// Board returns the last fetched quote board.
func (v *QuotesView) Board() []models.Quote {
	v.mu.RLock()
	defer v.mu.RUnlock()
	board := make([]models.Quote, len(v.quotes))
	copy(board, v.quotes)
	return board
}
