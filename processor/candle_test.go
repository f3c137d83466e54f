package processor

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"marketview/models"
)

func tradeAt(id, price string, ts time.Time) models.Trade {
	return models.Trade{
		ID:        id,
		Ticker:    "ACME",
		Side:      models.SideBuy,
		Price:     dec(price),
		Quantity:  dec("1"),
		Timestamp: ts,
	}
}

func TestAggregateSingleDay(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Deliberately out of chronological order.
	trades := []models.Trade{
		tradeAt("t2", "12", day.Add(4*time.Hour)),
		tradeAt("t3", "9", day.Add(6*time.Hour)),
		tradeAt("t1", "10", day.Add(1*time.Hour)),
	}

	candles := NewCandleAggregator(PeriodDay).Aggregate(trades, nil, day)

	if len(candles) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(candles))
	}
	c := candles[0]
	if c.PeriodKey != "2024-01-01" {
		t.Errorf("period key = %s", c.PeriodKey)
	}
	if !c.Open.Equal(dec("10")) {
		t.Errorf("open = %s, want 10 (earliest by timestamp)", c.Open)
	}
	if !c.Close.Equal(dec("9")) {
		t.Errorf("close = %s, want 9 (latest by timestamp)", c.Close)
	}
	if !c.High.Equal(dec("12")) || !c.Low.Equal(dec("9")) {
		t.Errorf("high/low = %s/%s, want 12/9", c.High, c.Low)
	}
	if c.Synthetic {
		t.Errorf("trade-derived candle must not be synthetic")
	}
}

func TestAggregateMultipleDaysSorted(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	d3 := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		tradeAt("c", "30", d3),
		tradeAt("a", "10", d1),
		tradeAt("b", "20", d2),
	}

	candles := NewCandleAggregator(PeriodDay).Aggregate(trades, nil, d3)

	if len(candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(candles))
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i-1].PeriodStart.Before(candles[i].PeriodStart) {
			t.Errorf("candles not ascending at %d: %s >= %s", i, candles[i-1].PeriodStart, candles[i].PeriodStart)
		}
	}
}

func TestAggregateIdempotentUnderShuffle(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	trades := make([]models.Trade, 0, 20)
	for i := 0; i < 20; i++ {
		trades = append(trades, tradeAt(
			string(rune('a'+i)),
			decimal.NewFromInt(int64(90+i%7)).String(),
			day.Add(time.Duration(i)*time.Minute),
		))
	}

	agg := NewCandleAggregator(PeriodDay)
	want := agg.Aggregate(trades, nil, day)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]models.Trade, len(trades))
		copy(shuffled, trades)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := agg.Aggregate(shuffled, nil, day)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("trial %d: shuffled input changed candle output", trial)
		}
	}
}

func TestAggregateHighLowBounds(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		tradeAt("1", "50", day.Add(1*time.Minute)),
		tradeAt("2", "55", day.Add(2*time.Minute)),
		tradeAt("3", "45", day.Add(3*time.Minute)),
		tradeAt("4", "52", day.Add(4*time.Minute)),
	}

	for _, c := range NewCandleAggregator(PeriodDay).Aggregate(trades, nil, day) {
		if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) {
			t.Errorf("low %s above open %s or close %s", c.Low, c.Open, c.Close)
		}
		if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
			t.Errorf("high %s below open %s or close %s", c.High, c.Open, c.Close)
		}
		if c.Low.GreaterThan(c.High) {
			t.Errorf("low %s above high %s", c.Low, c.High)
		}
	}
}

func TestAggregateSyntheticFallback(t *testing.T) {
	now := time.Date(2024, 2, 10, 14, 30, 0, 0, time.UTC)
	ref := dec("50")

	candles := NewCandleAggregator(PeriodDay).Aggregate(nil, &ref, now)

	if len(candles) != 1 {
		t.Fatalf("expected 1 synthetic candle, got %d", len(candles))
	}
	c := candles[0]
	if !c.Synthetic {
		t.Fatalf("fallback candle must be flagged synthetic")
	}
	if !c.Open.Equal(ref) || !c.High.Equal(ref) || !c.Low.Equal(ref) || !c.Close.Equal(ref) {
		t.Errorf("synthetic candle not flat at 50: %+v", c)
	}
	if c.PeriodKey != "2024-02-10" {
		t.Errorf("synthetic period key = %s", c.PeriodKey)
	}
}

func TestAggregateNoTradesNoReference(t *testing.T) {
	if candles := NewCandleAggregator(PeriodDay).Aggregate(nil, nil, time.Now()); len(candles) != 0 {
		t.Fatalf("no trades and no reference price must emit nothing, got %d", len(candles))
	}
}

func TestAggregateHourPeriod(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	trades := []models.Trade{
		tradeAt("1", "10", base.Add(5*time.Minute)),
		tradeAt("2", "11", base.Add(50*time.Minute)),
		tradeAt("3", "12", base.Add(70*time.Minute)),
	}

	candles := NewCandleAggregator(PeriodHour).Aggregate(trades, nil, base)

	if len(candles) != 2 {
		t.Fatalf("expected 2 hourly candles, got %d", len(candles))
	}
	if candles[0].PeriodKey != "2024-01-01T09" || candles[1].PeriodKey != "2024-01-01T10" {
		t.Errorf("period keys = %s, %s", candles[0].PeriodKey, candles[1].PeriodKey)
	}
	if !candles[0].Close.Equal(dec("11")) {
		t.Errorf("first hour close = %s, want 11", candles[0].Close)
	}
}

func TestAggregateEqualTimestampsDeterministic(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := []models.Trade{tradeAt("a", "10", ts), tradeAt("b", "11", ts)}
	b := []models.Trade{tradeAt("b", "11", ts), tradeAt("a", "10", ts)}

	agg := NewCandleAggregator(PeriodDay)
	ca := agg.Aggregate(a, nil, ts)
	cb := agg.Aggregate(b, nil, ts)

	if !reflect.DeepEqual(ca, cb) {
		t.Fatalf("equal-timestamp trades produced order-dependent candles: %+v vs %+v", ca, cb)
	}
}
