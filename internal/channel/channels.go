// Package channel carries derived view updates from the aggregation
// pipeline to the rendering layer. Sends never block: when a consumer
// falls behind, the update is dropped and counted, because the next poll
// tick recomputes everything from scratch anyway.
package channel

import (
	"context"
	"sync"
	"time"

	"marketview/logger"
	"marketview/models"
)

type ChannelStats struct {
	DepthSent     int64
	DepthDropped  int64
	CandleSent    int64
	CandleDropped int64
	TapeSent      int64
	TapeDropped   int64
	QuoteSent     int64
	QuoteDropped  int64
}

type Channels struct {
	Depth   chan models.DepthUpdate
	Candles chan models.CandleUpdate
	Tape    chan models.TapeUpdate
	Quotes  chan models.QuoteUpdate

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(depthBuffer, candleBuffer, tapeBuffer, quoteBuffer int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Depth:   make(chan models.DepthUpdate, depthBuffer),
		Candles: make(chan models.CandleUpdate, candleBuffer),
		Tape:    make(chan models.TapeUpdate, tapeBuffer),
		Quotes:  make(chan models.QuoteUpdate, quoteBuffer),
		log:     log,
	}

	log.WithComponent("view_channels").WithFields(logger.Fields{
		"depth_buffer":  depthBuffer,
		"candle_buffer": candleBuffer,
		"tape_buffer":   tapeBuffer,
		"quote_buffer":  quoteBuffer,
	}).Info("view channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Depth)
	close(c.Candles)
	close(c.Tape)
	close(c.Quotes)
	c.log.WithComponent("view_channels").Info("view channels closed")
}

func (c *Channels) SendDepth(ctx context.Context, upd models.DepthUpdate) bool {
	select {
	case c.Depth <- upd:
		c.bump(func(s *ChannelStats) { s.DepthSent++ })
		logger.IncrementUpdateSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.bump(func(s *ChannelStats) { s.DepthDropped++ })
		return false
	}
}

func (c *Channels) SendCandles(ctx context.Context, upd models.CandleUpdate) bool {
	select {
	case c.Candles <- upd:
		c.bump(func(s *ChannelStats) { s.CandleSent++ })
		logger.IncrementUpdateSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.bump(func(s *ChannelStats) { s.CandleDropped++ })
		return false
	}
}

func (c *Channels) SendTape(ctx context.Context, upd models.TapeUpdate) bool {
	select {
	case c.Tape <- upd:
		c.bump(func(s *ChannelStats) { s.TapeSent++ })
		logger.IncrementUpdateSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.bump(func(s *ChannelStats) { s.TapeDropped++ })
		return false
	}
}

func (c *Channels) SendQuotes(ctx context.Context, upd models.QuoteUpdate) bool {
	select {
	case c.Quotes <- upd:
		c.bump(func(s *ChannelStats) { s.QuoteSent++ })
		logger.IncrementUpdateSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.bump(func(s *ChannelStats) { s.QuoteDropped++ })
		return false
	}
}

func (c *Channels) bump(f func(*ChannelStats)) {
	c.statsMutex.Lock()
	f(&c.stats)
	c.statsMutex.Unlock()
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

func (c *Channels) logMetrics() {
	stats := c.GetStats()
	c.log.LogMetric("view_channels", "depth_sent", stats.DepthSent, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "depth_dropped", stats.DepthDropped, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "candle_sent", stats.CandleSent, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "candle_dropped", stats.CandleDropped, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "tape_sent", stats.TapeSent, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "tape_dropped", stats.TapeDropped, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "quote_sent", stats.QuoteSent, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "quote_dropped", stats.QuoteDropped, "counter", logger.Fields{})
	c.log.LogMetric("view_channels", "depth_len", int64(len(c.Depth)), "gauge", logger.Fields{})
	c.log.LogMetric("view_channels", "candle_len", int64(len(c.Candles)), "gauge", logger.Fields{})
	c.log.LogMetric("view_channels", "tape_len", int64(len(c.Tape)), "gauge", logger.Fields{})
	c.log.LogMetric("view_channels", "quote_len", int64(len(c.Quotes)), "gauge", logger.Fields{})
}

// StartMetricsReporting logs channel occupancy and send/drop counters
// until the context is cancelled.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logMetrics()
		}
	}
}
