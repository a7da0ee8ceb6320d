// Command coinrates serves latest crypto prices and historical rates over HTTP.
// It can be configured via a YAML configuration file or command-line arguments.
//
// Usage:
//
//	coinrates --config config.yaml
//	coinrates (uses CLI arguments)
//	coinrates setup (interactive wizard that writes config.gen.yaml)
//
// Environment variables (also read from .env):
//
//	PORT, CMC_API_KEY, COINGECKO_API_KEY, EXCHANGERATES_API_KEY
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/config"
	"github.com/vadiminshakov/coinrates/internal/app"
	"github.com/vadiminshakov/coinrates/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		path, err := setup.RunTUI(setup.DefaultFileName)
		if err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", path}
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to init app", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close app", zap.Error(err))
		}
	}()

	logger.Info("starting coinrates",
		zap.String("addr", cfg.Addr()),
		zap.String("quote_source", cfg.QuoteSource),
		zap.String("historical_source", cfg.HistoricalSource),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("store", string(a.Status().State)))

	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
