package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side of a trade or resting order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is a normalized trade record. Immutable once built; a newer poll
// result for the same ticker replaces the whole list.
type Trade struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"asset_ticker"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Timestamp time.Time       `json:"timestamp"`
}

// DepthLevel is one row of a depth ladder. Total is the cumulative
// quantity from the best price out to and including this level. Percent is
// Total relative to the deepest cumulative total on either side, clamped
// to [0,100] for display.
type DepthLevel struct {
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Total   decimal.Decimal `json:"total"`
	Percent float64         `json:"percent"`
}

// DepthLadder holds both sides of an aggregated order book: bids ordered
// by price descending, asks ascending. Either side may be empty.
type DepthLadder struct {
	Bids []DepthLevel `json:"bids"`
	Asks []DepthLevel `json:"asks"`
}

// SpreadMetrics carries best prices and spread. Nil fields mean the value
// is undefined for this book (missing side), never zero-as-absent. Spread
// and SpreadPercent are set only when both best prices exist; a crossed
// book yields a negative spread rather than a clamped one.
type SpreadMetrics struct {
	BestBid       *decimal.Decimal `json:"best_bid,omitempty"`
	BestAsk       *decimal.Decimal `json:"best_ask,omitempty"`
	Spread        *decimal.Decimal `json:"spread,omitempty"`
	SpreadPercent *decimal.Decimal `json:"spread_percent,omitempty"`
}

// Candle is one OHLC bar. Synthetic marks the placeholder bar emitted from
// a reference price when the trade list is empty.
type Candle struct {
	PeriodKey   string          `json:"period_key"`
	PeriodStart time.Time       `json:"period_start"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Synthetic   bool            `json:"synthetic,omitempty"`
}

// Quote is a normalized row from the quote feed. HasPrice reports whether
// the feed actually carried a current price; a quoted price of zero is
// still a price.
type Quote struct {
	Ticker             string          `json:"ticker"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	BidPrice           decimal.Decimal `json:"bid_price"`
	AskPrice           decimal.Decimal `json:"ask_price"`
	PriceChange        decimal.Decimal `json:"price_change"`
	PriceChangePercent decimal.Decimal `json:"price_change_percent"`
	HasPrice           bool            `json:"has_price"`
}

// PollState is the per-view refresh status exposed to the rendering layer.
type PollState struct {
	LastUpdated  time.Time `json:"last_updated"`
	Error        string    `json:"error,omitempty"`
	IsRefreshing bool      `json:"is_refreshing"`
}

// DepthUpdate is published after a successful book refresh.
type DepthUpdate struct {
	UpdateID  string        `json:"update_id"`
	Ticker    string        `json:"ticker"`
	Ladder    DepthLadder   `json:"ladder"`
	Spread    SpreadMetrics `json:"spread"`
	Timestamp time.Time     `json:"timestamp"`
}

// CandleUpdate is published after a successful tape refresh.
type CandleUpdate struct {
	UpdateID  string    `json:"update_id"`
	Ticker    string    `json:"ticker"`
	Candles   []Candle  `json:"candles"`
	Timestamp time.Time `json:"timestamp"`
}

// TapeUpdate carries the normalized trade list for the tape view.
type TapeUpdate struct {
	UpdateID  string    `json:"update_id"`
	Ticker    string    `json:"ticker"`
	Trades    []Trade   `json:"trades"`
	Timestamp time.Time `json:"timestamp"`
}

// QuoteUpdate carries the latest quote board.
type QuoteUpdate struct {
	UpdateID  string    `json:"update_id"`
	Quotes    []Quote   `json:"quotes"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeTicker canonicalises a ticker for map keys and feed requests.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
