package models

import (
	"time"
)

// Wire shapes returned by the venue API. Numeric fields are decoded as
// `any` because the feed mixes decimal strings, JSON numbers and nulls;
// they pass through numeric.Parse before any arithmetic.

// TradeRow is one record from the trade feed.
type TradeRow struct {
	ID        string `json:"id"`
	Ticker    string `json:"asset_ticker"`
	Side      string `json:"side"`
	Price     any    `json:"price"`
	Quantity  any    `json:"quantity"`
	Timestamp string `json:"timestamp"`
}

// RawLevel is one pre-aggregated ladder row. Total is cumulative and
// authoritative as supplied by the venue.
type RawLevel struct {
	Price any `json:"price"`
	Size  any `json:"size"`
	Total any `json:"total"`
}

// RawOrder is one resting order from the flat book shape. Either Size or
// Quantity may carry the amount depending on the backend version.
type RawOrder struct {
	Side     string `json:"side"`
	Price    any    `json:"price"`
	Size     any    `json:"size"`
	Quantity any    `json:"quantity"`
}

// BookShape discriminates the two order-book feed shapes.
type BookShape string

const (
	// BookShapeLevels means the feed supplied pre-aggregated
	// {price,size,total} rows per side.
	BookShapeLevels BookShape = "levels"
	// BookShapeOrders means the feed supplied a flat list of individual
	// resting orders that still needs aggregation.
	BookShapeOrders BookShape = "orders"
)

// BookSnapshot is the tagged union of the two book shapes, resolved once
// when the response body is decoded rather than re-sniffed downstream.
type BookSnapshot struct {
	Ticker    string
	Shape     BookShape
	Bids      []RawLevel // BookShapeLevels
	Asks      []RawLevel // BookShapeLevels
	Orders    []RawOrder // BookShapeOrders
	Timestamp time.Time
}

// QuoteRow is one record from the quote feed.
type QuoteRow struct {
	Ticker             string `json:"ticker"`
	CurrentPrice       any    `json:"current_price"`
	BidPrice           any    `json:"bid_price"`
	AskPrice           any    `json:"ask_price"`
	PriceChange        any    `json:"price_change"`
	PriceChangePercent any    `json:"price_change_percent"`
}
