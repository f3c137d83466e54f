package processor

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"marketview/logger"
	"marketview/models"
)

// CandlePeriod is the bucketing granularity for OHLC bars.
type CandlePeriod string

const (
	PeriodDay    CandlePeriod = "day"
	PeriodHour   CandlePeriod = "hour"
	PeriodMinute CandlePeriod = "minute"
)

// CandleAggregator folds a trade list into per-period OHLC candles. The
// fold is a full recompute over the latest snapshot and is deterministic
// for the same trade set regardless of input order.
type CandleAggregator struct {
	period CandlePeriod
	log    *logger.Log
}

func NewCandleAggregator(period CandlePeriod) *CandleAggregator {
	switch period {
	case PeriodDay, PeriodHour, PeriodMinute:
	default:
		period = PeriodDay
	}
	return &CandleAggregator{period: period, log: logger.GetLogger()}
}

// Aggregate emits one candle per period, ascending by period start. When
// the trade list is empty and a reference price is known it emits a single
// synthetic flat candle for the period containing now, so a chart with a
// known quote never renders completely empty.
func (ca *CandleAggregator) Aggregate(trades []models.Trade, referencePrice *decimal.Decimal, now time.Time) []models.Candle {
	if len(trades) == 0 {
		if referencePrice == nil {
			return nil
		}
		start := ca.truncate(now)
		return []models.Candle{{
			PeriodKey:   ca.key(start),
			PeriodStart: start,
			Open:        *referencePrice,
			High:        *referencePrice,
			Low:         *referencePrice,
			Close:       *referencePrice,
			Synthetic:   true,
		}}
	}

	// Sort by timestamp with ID as tie-break so equal-timestamp trades
	// pick the same open/close no matter how the feed ordered them.
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	buckets := make(map[int64]*models.Candle)
	order := make([]int64, 0)

	for _, trade := range sorted {
		start := ca.truncate(trade.Timestamp)
		key := start.Unix()

		candle, exists := buckets[key]
		if !exists {
			buckets[key] = &models.Candle{
				PeriodKey:   ca.key(start),
				PeriodStart: start,
				Open:        trade.Price,
				High:        trade.Price,
				Low:         trade.Price,
				Close:       trade.Price,
			}
			order = append(order, key)
			continue
		}

		if trade.Price.GreaterThan(candle.High) {
			candle.High = trade.Price
		}
		if trade.Price.LessThan(candle.Low) {
			candle.Low = trade.Price
		}
		// Trades arrive sorted, so the running close is the latest trade.
		candle.Close = trade.Price
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	candles := make([]models.Candle, 0, len(order))
	for _, key := range order {
		candles = append(candles, *buckets[key])
	}
	return candles
}

// truncate maps a trade timestamp to its period start in UTC.
func (ca *CandleAggregator) truncate(ts time.Time) time.Time {
	ts = ts.UTC()
	switch ca.period {
	case PeriodHour:
		return ts.Truncate(time.Hour)
	case PeriodMinute:
		return ts.Truncate(time.Minute)
	default:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// key renders the calendar label used by the chart axis.
func (ca *CandleAggregator) key(start time.Time) string {
	switch ca.period {
	case PeriodHour:
		return start.Format("2006-01-02T15")
	case PeriodMinute:
		return start.Format("2006-01-02T15:04")
	default:
		return start.Format("2006-01-02")
	}
}
