package processor

import (
	"strings"
	"time"

	"marketview/logger"
	"marketview/models"
	"marketview/numeric"
)

// NormalizeTrades converts wire trade rows into domain trades. Rows with a
// missing price or an unparsable timestamp are dropped with a warning;
// one bad record never discards the rest of the tape.
func NormalizeTrades(ticker string, rows []models.TradeRow) []models.Trade {
	log := logger.GetLogger().WithComponent("tape_normalizer").WithFields(logger.Fields{
		"ticker": ticker,
	})

	trades := make([]models.Trade, 0, len(rows))
	for i, row := range rows {
		price, ok := numeric.ParseStrict(row.Price)
		if !ok {
			log.WithFields(logger.Fields{"row": i + 1, "trade_id": row.ID}).Warn("dropping trade without price")
			continue
		}

		ts, err := parseTimestamp(row.Timestamp)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"row": i + 1, "trade_id": row.ID}).Warn("dropping trade with bad timestamp")
			continue
		}

		side := models.Side(strings.ToUpper(strings.TrimSpace(row.Side)))
		if side != models.SideBuy && side != models.SideSell {
			log.WithFields(logger.Fields{"row": i + 1, "side": row.Side}).Warn("dropping trade with unknown side")
			continue
		}

		trades = append(trades, models.Trade{
			ID:        row.ID,
			Ticker:    models.NormalizeTicker(row.Ticker),
			Side:      side,
			Price:     price,
			Quantity:  numeric.Parse(row.Quantity),
			Timestamp: ts,
		})
	}
	return trades
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	// Some backend builds omit the zone suffix; those stamps are UTC.
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}

// NormalizeQuotes converts wire quote rows into domain quotes. A missing
// current price flips HasPrice off instead of masquerading as zero, so a
// legitimately zero-priced instrument still counts as quoted.
func NormalizeQuotes(rows []models.QuoteRow) []models.Quote {
	quotes := make([]models.Quote, 0, len(rows))
	for _, row := range rows {
		current, hasPrice := numeric.ParseStrict(row.CurrentPrice)
		quotes = append(quotes, models.Quote{
			Ticker:             models.NormalizeTicker(row.Ticker),
			CurrentPrice:       current,
			BidPrice:           numeric.Parse(row.BidPrice),
			AskPrice:           numeric.Parse(row.AskPrice),
			PriceChange:        numeric.Parse(row.PriceChange),
			PriceChangePercent: numeric.Parse(row.PriceChangePercent),
			HasPrice:           hasPrice,
		})
	}
	return quotes
}
