package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketview/config"
	"marketview/internal/channel"
	"marketview/logger"
	"marketview/poller"
	"marketview/processor"
	"marketview/reader/venue"
	"marketview/view"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Marketview.Name,
		"version":     cfg.Marketview.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting marketview")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Logging.CloudWatch {
		logger.InitCloudWatch(os.Getenv("AWS_REGION"), cfg.Marketview.Name, cfg.Logging.DashboardName)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := channel.NewChannels(
		cfg.Channels.DepthBuffer,
		cfg.Channels.CandleBuffer,
		cfg.Channels.TapeBuffer,
		cfg.Channels.QuoteBuffer,
	)
	defer channels.Close()

	go channels.StartMetricsReporting(ctx)
	go drainUpdates(ctx, channels)

	feed := venue.NewClient(cfg)

	quotesView := view.NewQuotesView(feed, channels)

	pollers := make([]*poller.Poller, 0, 1+2*len(cfg.Views.Tickers))

	if cfg.Views.Quotes.Enabled {
		pollers = append(pollers, poller.New("quotes", cfg.Views.Quotes.Interval, quotesView.Refresh))
	}

	period := processor.CandlePeriod(strings.ToLower(cfg.Candles.Period))
	for _, ticker := range cfg.Views.Tickers {
		if cfg.Views.Book.Enabled {
			bookView := view.NewBookView(ticker, feed, channels)
			pollers = append(pollers, poller.New("book:"+ticker, cfg.Views.Book.Interval, bookView.Refresh))
		}
		if cfg.Views.Tape.Enabled {
			tapeView := view.NewTapeView(ticker, feed, period, quotesView.ReferencePrice, channels)
			pollers = append(pollers, poller.New("tape:"+ticker, cfg.Views.Tape.Interval, tapeView.Refresh))
		}
	}

	if len(pollers) == 0 {
		log.Error("no views enabled, nothing to poll")
		os.Exit(1)
	}

	for _, p := range pollers {
		if err := p.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start poller")
			os.Exit(1)
		}
	}

	log.WithFields(logger.Fields{
		"pollers": len(pollers),
		"tickers": len(cfg.Views.Tickers),
	}).Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		for _, p := range pollers {
			p.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("marketview stopped")
}

// drainUpdates is the rendering boundary of this binary: it consumes the
// view channels so pollers never back up. A UI embedding the packages
// would read these channels itself.
func drainUpdates(ctx context.Context, channels *channel.Channels) {
	log := logger.GetLogger().WithComponent("render")
	for {
		select {
		case <-ctx.Done():
			return
		case upd := <-channels.Depth:
			log.WithFields(logger.Fields{
				"ticker": upd.Ticker,
				"bids":   len(upd.Ladder.Bids),
				"asks":   len(upd.Ladder.Asks),
			}).Debug("depth update")
		case upd := <-channels.Candles:
			log.WithFields(logger.Fields{
				"ticker":  upd.Ticker,
				"candles": len(upd.Candles),
			}).Debug("candle update")
		case upd := <-channels.Tape:
			log.WithFields(logger.Fields{
				"ticker": upd.Ticker,
				"trades": len(upd.Trades),
			}).Debug("tape update")
		case upd := <-channels.Quotes:
			log.WithFields(logger.Fields{
				"quotes": len(upd.Quotes),
			}).Debug("quote update")
		}
	}
}
