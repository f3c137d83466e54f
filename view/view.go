// Package view holds the per-view refresh pipelines: each view fetches
// its slice of the venue feed, runs the aggregation for it and publishes
// an update envelope. Views retain their last good result so a failed
// refresh leaves the display unchanged.
package view

import (
	"context"

	"marketview/models"
)

// Feed is the read side of the venue API consumed by views. Satisfied by
// reader/venue.Client.
type Feed interface {
	Trades(ctx context.Context, ticker string) ([]models.TradeRow, error)
	OrderBook(ctx context.Context, ticker string) (*models.BookSnapshot, error)
	Quotes(ctx context.Context) ([]models.QuoteRow, error)
}
