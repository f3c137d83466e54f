package processor

import (
	"github.com/shopspring/decimal"

	"marketview/logger"
	"marketview/models"
)

// ComputeSpread derives best prices and spread from an aggregated ladder.
// Fields stay nil when a side is missing; spread and spreadPercent are set
// together or not at all, so a one-sided book never reads as a zero
// spread. A crossed book (best bid above best ask) passes through as a
// negative spread: it usually marks a backend race and is worth seeing.
func ComputeSpread(ticker string, ladder models.DepthLadder) models.SpreadMetrics {
	var metrics models.SpreadMetrics

	if len(ladder.Bids) > 0 {
		bid := ladder.Bids[0].Price
		metrics.BestBid = &bid
	}
	if len(ladder.Asks) > 0 {
		ask := ladder.Asks[0].Price
		metrics.BestAsk = &ask
	}

	if metrics.BestBid == nil || metrics.BestAsk == nil {
		return metrics
	}

	// Spread and percentage are populated together; a zero best bid would
	// make the percentage undefined, so neither is reported then.
	if metrics.BestBid.IsZero() {
		return metrics
	}

	spread := metrics.BestAsk.Sub(*metrics.BestBid)
	pct := spread.Div(*metrics.BestBid).Mul(decimal.NewFromInt(100))
	metrics.Spread = &spread
	metrics.SpreadPercent = &pct

	if spread.IsNegative() {
		logger.GetLogger().WithComponent("spread_calculator").WithFields(logger.Fields{
			"ticker":   ticker,
			"best_bid": metrics.BestBid.String(),
			"best_ask": metrics.BestAsk.String(),
		}).Warn("crossed book observed")
	}

	return metrics
}
