package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/config"
	"github.com/vadiminshakov/coinrates/internal/cache"
	"github.com/vadiminshakov/coinrates/internal/clients"
	"github.com/vadiminshakov/coinrates/internal/services/quotes"
)

const vsCurrency = "EUR"

// newQuoteSource is the single point of truth for picking the latest price upstream.
func newQuoteSource(cfg config.Config) (quotes.QuoteSource, error) {
	switch cfg.QuoteSource {
	case config.QuoteSourceCoinMarketCap:
		return clients.NewCoinMarketCap(cfg.CoinMarketCap.BaseURL, cfg.CoinMarketCap.APIKey, vsCurrency, cfg.HTTPTimeout), nil
	case config.QuoteSourceBinance:
		return clients.NewBinanceQuotes(clients.NewBinanceClient(cfg.BinanceBaseURL), cfg.BinanceQuoteAsset), nil
	case config.QuoteSourceBybit:
		return clients.NewBybitQuotes(clients.NewBybitClient(cfg.BybitBaseURL, cfg.HTTPTimeout), cfg.BybitQuoteAsset), nil
	default:
		return nil, fmt.Errorf("unsupported quote source: %s", cfg.QuoteSource)
	}
}

// cacheProvider builds typed caches on the configured backend.
type cacheProvider struct {
	backend string
	rdb     *redis.Client
}

func newCacheProvider(ctx context.Context, cfg config.Cache, l *zap.Logger) (*cacheProvider, error) {
	if cfg.Backend != cache.BackendRedis {
		return &cacheProvider{backend: cache.BackendMemory}, nil
	}

	rdb, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	l.Info("using redis cache", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return &cacheProvider{backend: cache.BackendRedis, rdb: rdb}, nil
}

func newCache[T any](p *cacheProvider, prefix string, ttl time.Duration) cache.Cache[T] {
	if p.backend == cache.BackendRedis {
		return cache.NewRedis[T](p.rdb, prefix, ttl)
	}
	return cache.NewMemory[T](ttl)
}

func (p *cacheProvider) Close() error {
	if p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
