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

// ReferencePriceFunc supplies a fallback price for the synthetic candle
// when a ticker has no trades yet. Usually backed by the quotes view.
type ReferencePriceFunc func(ticker string) (*decimal.Decimal, bool)

// TapeView renders one ticker's trade tape and drives its candle chart
// off the same fetch, so tape and chart never disagree about the trades.
type TapeView struct {
	ticker   string
	feed     Feed
	candles  *processor.CandleAggregator
	refPrice ReferencePriceFunc
	ch       *channel.Channels
	log      *logger.Log

	mu      sync.RWMutex
	trades  []models.Trade
	hasData bool
}

func NewTapeView(ticker string, feed Feed, period processor.CandlePeriod, refPrice ReferencePriceFunc, ch *channel.Channels) *TapeView {
	return &TapeView{
		ticker:   models.NormalizeTicker(ticker),
		feed:     feed,
		candles:  processor.NewCandleAggregator(period),
		refPrice: refPrice,
		ch:       ch,
		log:      logger.GetLogger(),
	}
}

// Refresh fetches the tape, normalizes it and publishes both a TapeUpdate
// and the recomputed CandleUpdate. Candles are a full recompute from the
// latest trade list on every tick.
func (v *TapeView) Refresh(ctx context.Context) error {
	rows, err := v.feed.Trades(ctx, v.ticker)
	if err != nil {
		return fmt.Errorf("refresh tape %s: %w", v.ticker, err)
	}

	trades := processor.NormalizeTrades(v.ticker, rows)

	v.mu.Lock()
	v.trades = trades
	v.hasData = true
	v.mu.Unlock()

	now := time.Now().UTC()
	v.ch.SendTape(ctx, models.TapeUpdate{
		UpdateID:  uuid.NewString(),
		Ticker:    v.ticker,
		Trades:    trades,
		Timestamp: now,
	})

	var reference *decimal.Decimal
	if len(trades) == 0 && v.refPrice != nil {
		if price, ok := v.refPrice(v.ticker); ok {
			reference = price
		}
	}

	candles := v.candles.Aggregate(trades, reference, now)
	if len(candles) > 0 {
		v.ch.SendCandles(ctx, models.CandleUpdate{
			UpdateID:  uuid.NewString(),
			Ticker:    v.ticker,
			Candles:   candles,
			Timestamp: now,
		})
	}

	v.log.WithComponent("tape_view").WithFields(logger.Fields{
		"ticker":  v.ticker,
		"trades":  len(trades),
		"candles": len(candles),
	}).Debug("tape refreshed")

	return nil
}

// Trades returns the last good trade list, if any.
func (v *TapeView) Trades() ([]models.Trade, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.trades, v.hasData
}
