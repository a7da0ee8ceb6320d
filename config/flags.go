package config

import (
	"flag"
	"strconv"
	"strings"
	"time"
)

type cliFlags struct {
	port             *int
	dataDir          *string
	symbols          *string
	quoteSource      *string
	historicalSource *string
	cacheBackend     *string
	redisAddr        *string
	pacingInterval   *time.Duration
	logLevel         *string
}

func registerCLIFlags(fs *flag.FlagSet) *cliFlags {
	return &cliFlags{
		port:             fs.Int("port", defaultPort, "http listen port"),
		dataDir:          fs.String("datadir", defaultDataDir, "directory for price history and snapshot journal"),
		symbols:          fs.String("symbols", "", "supported symbols, example: BTC,ETH,SOL"),
		quoteSource:      fs.String("quotesource", QuoteSourceCoinMarketCap, "latest price source: coinmarketcap, binance or bybit"),
		historicalSource: fs.String("historicalsource", HistoricalSourceMarketChart, "default historical source: marketchart, fx or store"),
		cacheBackend:     fs.String("cache", "memory", "cache backend: memory or redis"),
		redisAddr:        fs.String("redisaddr", defaultRedisAddr, "redis address for the redis cache backend"),
		pacingInterval:   fs.Duration("pacinginterval", defaultPacingInterval, "pause between market chart requests"),
		logLevel:         fs.String("loglevel", defaultLogLevel, "log level: debug, info, warn or error"),
	}
}

func (f *cliFlags) tmp() ConfigTmp {
	var symbols []string
	if strings.TrimSpace(*f.symbols) != "" {
		symbols = strings.Split(*f.symbols, ",")
	}
	return ConfigTmp{
		Port:             strconv.Itoa(*f.port),
		DataDir:          *f.dataDir,
		Symbols:          symbols,
		QuoteSource:      *f.quoteSource,
		HistoricalSource: *f.historicalSource,
		Cache: CacheTmp{
			Backend:   *f.cacheBackend,
			RedisAddr: *f.redisAddr,
		},
		PacingInterval: f.pacingInterval.String(),
		LogLevel:       *f.logLevel,
	}
}
