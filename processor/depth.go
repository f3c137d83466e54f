package processor

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"marketview/logger"
	"marketview/models"
	"marketview/numeric"
)

// DepthAggregator turns an order-book snapshot into sorted bid/ask ladders
// with cumulative totals. The whole ladder is rebuilt on every poll tick;
// nothing is patched incrementally.
type DepthAggregator struct {
	log *logger.Log
}

func NewDepthAggregator() *DepthAggregator {
	return &DepthAggregator{log: logger.GetLogger()}
}

// Aggregate dispatches on the snapshot shape resolved at the feed
// boundary. Malformed rows are dropped; a single bad level never blanks
// the rest of the book.
func (da *DepthAggregator) Aggregate(snap *models.BookSnapshot) models.DepthLadder {
	if snap == nil {
		return models.DepthLadder{}
	}

	var ladder models.DepthLadder
	switch snap.Shape {
	case models.BookShapeLevels:
		ladder = da.fromLevels(snap)
	case models.BookShapeOrders:
		ladder = da.fromOrders(snap)
	default:
		da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
			"ticker": snap.Ticker,
			"shape":  string(snap.Shape),
		}).Warn("unknown book shape, returning empty ladder")
		return models.DepthLadder{}
	}

	annotatePercent(&ladder)
	return ladder
}

// fromLevels normalizes pre-aggregated rows. The supplied cumulative total
// is authoritative: the source may apply rules such as minimum-lot
// filtering that this layer cannot reproduce, so it is never recomputed
// from size.
func (da *DepthAggregator) fromLevels(snap *models.BookSnapshot) models.DepthLadder {
	return models.DepthLadder{
		Bids: da.normalizeLevels(snap.Ticker, "bid", snap.Bids),
		Asks: da.normalizeLevels(snap.Ticker, "ask", snap.Asks),
	}
}

func (da *DepthAggregator) normalizeLevels(ticker, side string, rows []models.RawLevel) []models.DepthLevel {
	levels := make([]models.DepthLevel, 0, len(rows))
	for i, row := range rows {
		price, ok := numeric.ParseStrict(row.Price)
		if !ok {
			da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
				"ticker": ticker,
				"side":   side,
				"level":  i + 1,
			}).Warn("dropping ladder row without price")
			continue
		}
		size := numeric.Parse(row.Size)
		total := numeric.Parse(row.Total)
		if size.IsNegative() || total.IsNegative() {
			da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
				"ticker": ticker,
				"side":   side,
				"level":  i + 1,
			}).Warn("dropping ladder row with negative amount")
			continue
		}
		levels = append(levels, models.DepthLevel{
			Price: price,
			Size:  size,
			Total: total,
		})
	}
	return levels
}

// fromOrders splits a flat order list by side, sorts each side by price
// priority and accumulates running totals. The sort is stable so orders at
// the same price keep their feed order, which is FIFO by submission time.
func (da *DepthAggregator) fromOrders(snap *models.BookSnapshot) models.DepthLadder {
	type row struct {
		price decimal.Decimal
		size  decimal.Decimal
	}
	var bids, asks []row

	for i, order := range snap.Orders {
		price, ok := numeric.ParseStrict(order.Price)
		if !ok {
			da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
				"ticker": snap.Ticker,
				"side":   order.Side,
				"row":    i + 1,
			}).Warn("dropping order without price")
			continue
		}

		// Older backend versions send quantity instead of size.
		size, ok := numeric.ParseStrict(order.Size)
		if !ok {
			size = numeric.Parse(order.Quantity)
		}
		if size.IsNegative() {
			da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
				"ticker": snap.Ticker,
				"side":   order.Side,
				"row":    i + 1,
			}).Warn("dropping order with negative size")
			continue
		}

		r := row{price: price, size: size}
		switch strings.ToUpper(strings.TrimSpace(order.Side)) {
		case string(models.SideBuy), "BID":
			bids = append(bids, r)
		case string(models.SideSell), "ASK":
			asks = append(asks, r)
		default:
			da.log.WithComponent("depth_aggregator").WithFields(logger.Fields{
				"ticker": snap.Ticker,
				"side":   order.Side,
				"row":    i + 1,
			}).Warn("dropping order with unknown side")
		}
	}

	sort.SliceStable(bids, func(i, j int) bool { return bids[i].price.GreaterThan(bids[j].price) })
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].price.LessThan(asks[j].price) })

	accumulate := func(rows []row) []models.DepthLevel {
		levels := make([]models.DepthLevel, 0, len(rows))
		running := decimal.Zero
		for _, r := range rows {
			running = running.Add(r.size)
			levels = append(levels, models.DepthLevel{
				Price: r.price,
				Size:  r.size,
				Total: running,
			})
		}
		return levels
	}

	return models.DepthLadder{Bids: accumulate(bids), Asks: accumulate(asks)}
}

// annotatePercent fills each level's display percentage relative to the
// deepest cumulative total on either side, clamped to [0,100].
func annotatePercent(ladder *models.DepthLadder) {
	maxTotal := decimal.Zero
	for _, side := range [][]models.DepthLevel{ladder.Bids, ladder.Asks} {
		for _, lvl := range side {
			if lvl.Total.GreaterThan(maxTotal) {
				maxTotal = lvl.Total
			}
		}
	}
	if maxTotal.IsZero() {
		return
	}

	hundred := decimal.NewFromInt(100)
	for _, side := range [][]models.DepthLevel{ladder.Bids, ladder.Asks} {
		for i := range side {
			pct, _ := side[i].Total.Mul(hundred).Div(maxTotal).Float64()
			if pct < 0 {
				pct = 0
			}
			if pct > 100 {
				pct = 100
			}
			side[i].Percent = pct
		}
	}
}
