// Command zigquant is the composition root: it loads configuration, wires
// the Message Bus, Market Data Cache, Data Engine, Indicator Cache,
// Execution Engine, Engine Manager, and control server together, starts a
// demo strategy, and blocks until SIGINT/SIGTERM.
//
// The default wiring runs against the in-memory mock adapter (paper
// trading) rather than a live exchange: internal/adapter intentionally
// stops at the IDataProvider/IExecutionClient contract plus the
// WebSocketProvider harness, the same boundary the teacher drew around its
// broker client. Swapping in a real Hyperliquid adapter means supplying
// concrete BuildSubscribePayload/ParseMessage funcs to
// adapter.NewWebSocketProvider and an IExecutionClient that signs and
// submits orders over Hyperliquid's REST API; everything downstream of the
// adapter boundary is unaffected.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DaviRain-Su/zigQuant-sub014/internal/adapter"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/backtest"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/bus"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/config"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/dataengine"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/domain"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/execution"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/indicator"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/manager"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/marketdata"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/runner"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/server"
	"github.com/DaviRain-Su/zigQuant-sub014/internal/strategy"
	"github.com/DaviRain-Su/zigQuant-sub014/pkg/logger"
)

// demoSymbol is the single instrument the bundled demo strategy trades.
// Operators wiring a real deployment register additional symbols and
// strategies through the Engine Manager rather than editing this file.
const demoSymbol = "BTC-PERP"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty})
	log.Info().Str("config", cfg.String()).Msg("starting zigQuant")

	b := bus.New(log)
	cache := marketdata.New(log)
	indicatorCache, err := indicator.NewCache(cfg.IndicatorCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct indicator cache")
	}

	dataProvider := adapter.NewMockDataProvider(cfg.Exchange.Name)
	engine := dataengine.New(dataengine.DefaultConfig, b, cache, log)
	engine.RegisterProvider(dataProvider)

	execClient := adapter.NewMockExecutionClient(cfg.Exchange.Name)
	execEngine := execution.New(execClient, cfg.Limits, execution.DefaultRetryConfig, b, log)

	ticks := make(chan domain.Candle, 64)
	unsubCandles := bridgeCandles(b, demoSymbol, ticks)
	defer unsubCandles()

	strategyCfg := domain.StrategyConfig{Pair: domain.TradingPair{Base: "BTC", Quote: "USD"}}
	strategyRunner := runner.New("demo-dual-ma", strategy.NewDualMovingAverage(10, 30), strategyCfg, indicatorCache, execEngine, ticks, b, log)

	mgr := manager.New(b, log)
	if err := mgr.StartStrategy("demo-dual-ma", strategyRunner, execEngine); err != nil {
		log.Fatal().Err(err).Msg("failed to start demo strategy")
	}

	if cfg.S3.Enabled() {
		exporter, err := backtest.NewS3Exporter(context.Background(), cfg.S3, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to construct s3 backtest exporter, continuing without it")
		} else {
			mgr.SetS3Exporter(exporter)
		}
	}

	if err := mgr.StartHealthTicker(cfg.HealthTickerCron); err != nil {
		log.Fatal().Err(err).Msg("failed to start health ticker")
	}
	defer mgr.StopHealthTicker()

	if err := mgr.StartMaintenanceTicker("0 */5 * * * *", indicatorCache, time.Hour); err != nil {
		log.Fatal().Err(err).Msg("failed to start maintenance ticker")
	}
	defer mgr.StopMaintenanceTicker()

	ctrl := server.New(server.Config{Log: log, Manager: mgr, Addr: cfg.Server.Addr, DevMode: cfg.Server.DevMode})
	go func() {
		if err := ctrl.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("control server stopped")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)
	if err := engine.Subscribe(cfg.Exchange.Name, adapter.Subscription{Symbol: demoSymbol, Kind: adapter.SubscribeCandle}); err != nil {
		log.Error().Err(err).Msg("failed to subscribe to demo symbol")
	}
	log.Info().Str("symbol", demoSymbol).Msg("data engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	cancel()

	if err := strategyRunner.Stop(runner.DefaultStopDeadline); err != nil {
		log.Warn().Err(err).Msg("demo strategy did not stop cleanly")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control server forced to shutdown")
	}

	log.Info().Msg("zigQuant stopped")
}

// bridgeCandles subscribes to bus.TopicCandle and forwards every candle for
// symbol onto ticks, the channel shape runner.StrategyRunner consumes. A
// full ticks buffer drops the incoming candle rather than blocking the
// candle topic's dispatcher goroutine (unlike the Data Engine's buffer,
// which drops the oldest buffered update instead).
func bridgeCandles(b *bus.Bus, symbol string, ticks chan<- domain.Candle) func() {
	return b.Subscribe(bus.TopicCandle, func(msg bus.Message) {
		data, ok := msg.Payload.(adapter.DataMessage)
		if !ok || data.Symbol != symbol {
			return
		}
		select {
		case ticks <- data.Candle:
		default:
		}
	})
}
