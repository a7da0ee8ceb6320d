package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/coinrates/internal/cache"
	"github.com/vadiminshakov/coinrates/internal/clients"
	"github.com/vadiminshakov/coinrates/internal/domain"
)

// Quote and historical source names.
const (
	QuoteSourceCoinMarketCap = "coinmarketcap"
	QuoteSourceBinance       = "binance"
	QuoteSourceBybit         = "bybit"

	HistoricalSourceMarketChart = "marketchart"
	HistoricalSourceFX          = "fx"
	HistoricalSourceStore       = "store"
)

const (
	defaultPort             = 8080
	defaultDataDir          = "./data"
	defaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com/v2"
	defaultCoinGeckoURL     = "https://api.coingecko.com/api/v3"
	defaultExchangeRatesURL = "https://api.exchangerate.host"
	defaultQuoteAsset       = "EUR"
	defaultQuoteTTL         = 300 * time.Second
	defaultHistoricalTTL    = 3600 * time.Second
	defaultPacingInterval   = 2 * time.Second
	defaultHTTPTimeout      = 30 * time.Second
	defaultLogLevel         = "info"
	defaultRedisAddr        = "localhost:6379"
	envPort                 = "PORT"
	envCoinMarketCapAPIKey  = "CMC_API_KEY"
	envCoinGeckoAPIKey      = "COINGECKO_API_KEY"
	envExchangeRatesAPIKey  = "EXCHANGERATES_API_KEY"
)

// Source upstream API endpoint and credentials.
type Source struct {
	BaseURL string
	APIKey  string
}

// Cache cache backend settings.
type Cache struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QuoteTTL      time.Duration
	HistoricalTTL time.Duration
}

type Config struct {
	Port              int
	DataDir           string
	Symbols           []domain.Symbol
	CoinMarketCap     Source
	CoinGecko         Source
	CoinGeckoIDs      map[domain.Symbol]string
	ExchangeRates     Source
	QuoteSource       string
	BinanceBaseURL    string
	BinanceQuoteAsset string
	BybitBaseURL      string
	BybitQuoteAsset   string
	HistoricalSource  string
	Cache             Cache
	PacingInterval    time.Duration
	HTTPTimeout       time.Duration
	FXMissingAsZero   bool
	LogLevel          string
}

// Addr listen address of the HTTP server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

type SourceTmp struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
}

type CoinGeckoTmp struct {
	BaseURL string            `yaml:"base_url,omitempty"`
	APIKey  string            `yaml:"api_key,omitempty"`
	IDs     map[string]string `yaml:"ids,omitempty"`
}

// ExchangeTmp public ticker endpoint of an exchange quote source.
type ExchangeTmp struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	QuoteAsset string `yaml:"quote_asset,omitempty"`
}

type CacheTmp struct {
	Backend       string `yaml:"backend,omitempty"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       string `yaml:"redis_db,omitempty"`
	QuoteTTL      string `yaml:"quote_ttl,omitempty"`
	HistoricalTTL string `yaml:"historical_ttl,omitempty"`
}

type FXTmp struct {
	MissingAsZero bool `yaml:"missing_as_zero,omitempty"`
}

// ConfigTmp raw yaml representation, validated into Config.
type ConfigTmp struct {
	Port             string       `yaml:"port,omitempty"`
	DataDir          string       `yaml:"data_dir,omitempty"`
	Symbols          []string     `yaml:"symbols,omitempty"`
	CoinMarketCap    SourceTmp    `yaml:"coinmarketcap,omitempty"`
	CoinGecko        CoinGeckoTmp `yaml:"coingecko,omitempty"`
	ExchangeRates    SourceTmp    `yaml:"exchangerates,omitempty"`
	QuoteSource      string       `yaml:"quote_source,omitempty"`
	Binance          ExchangeTmp  `yaml:"binance,omitempty"`
	Bybit            ExchangeTmp  `yaml:"bybit,omitempty"`
	HistoricalSource string       `yaml:"historical_source,omitempty"`
	Cache            CacheTmp     `yaml:"cache,omitempty"`
	PacingInterval   string       `yaml:"pacing_interval,omitempty"`
	HTTPTimeout      string       `yaml:"http_timeout,omitempty"`
	FX               FXTmp        `yaml:"fx,omitempty"`
	LogLevel         string       `yaml:"log_level,omitempty"`
}

// Get loads .env, then reads config from the yaml file given by --config or
// from command line flags.
func Get() (Config, error) {
	_ = godotenv.Load()
	return Parse(os.Args[1:])
}

// Parse builds the config from args.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("coinrates", flag.ContinueOnError)
	path := fs.String("config", "", "path to yaml config")
	cli := registerCLIFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *path != "" {
		return LoadFile(*path)
	}
	return cli.tmp().build()
}

// LoadFile reads and validates a yaml config file.
func LoadFile(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c ConfigTmp
	if err := yaml.Unmarshal(f, &c); err != nil {
		return Config{}, fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}
	return c.build()
}

// Save writes c as yaml to path.
func Save(path string, c ConfigTmp) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c ConfigTmp) build() (Config, error) {
	cfg := Config{
		DataDir:           withDefault(c.DataDir, defaultDataDir),
		CoinMarketCap:     Source{BaseURL: withDefault(c.CoinMarketCap.BaseURL, defaultCoinMarketCapURL), APIKey: withEnv(c.CoinMarketCap.APIKey, envCoinMarketCapAPIKey)},
		CoinGecko:         Source{BaseURL: withDefault(c.CoinGecko.BaseURL, defaultCoinGeckoURL), APIKey: withEnv(c.CoinGecko.APIKey, envCoinGeckoAPIKey)},
		ExchangeRates:     Source{BaseURL: withDefault(c.ExchangeRates.BaseURL, defaultExchangeRatesURL), APIKey: withEnv(c.ExchangeRates.APIKey, envExchangeRatesAPIKey)},
		BinanceBaseURL:    c.Binance.BaseURL,
		BinanceQuoteAsset: strings.ToUpper(withDefault(c.Binance.QuoteAsset, defaultQuoteAsset)),
		BybitBaseURL:      c.Bybit.BaseURL,
		BybitQuoteAsset:   strings.ToUpper(withDefault(c.Bybit.QuoteAsset, defaultQuoteAsset)),
		FXMissingAsZero:   c.FX.MissingAsZero,
	}

	port := withDefault(os.Getenv(envPort), c.Port)
	if port == "" {
		cfg.Port = defaultPort
	} else {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return Config{}, fmt.Errorf("incorrect 'port' param in yaml config: %s (must be 1-65535)", port)
		}
		cfg.Port = p
	}

	if len(c.Symbols) == 0 {
		cfg.Symbols = domain.DefaultSymbols
	} else {
		cfg.Symbols = domain.ParseSymbols(strings.Join(c.Symbols, ","), allSymbols(c.Symbols))
	}

	cfg.CoinGeckoIDs = make(map[domain.Symbol]string, len(clients.DefaultCoinGeckoIDs)+len(c.CoinGecko.IDs))
	for symbol, id := range clients.DefaultCoinGeckoIDs {
		cfg.CoinGeckoIDs[symbol] = id
	}
	for symbol, id := range c.CoinGecko.IDs {
		if strings.TrimSpace(id) == "" {
			return Config{}, fmt.Errorf("incorrect 'coingecko.ids' param in yaml config: empty id for %s", symbol)
		}
		cfg.CoinGeckoIDs[domain.NewSymbol(symbol)] = id
	}

	switch src := strings.ToLower(withDefault(c.QuoteSource, QuoteSourceCoinMarketCap)); src {
	case QuoteSourceCoinMarketCap, QuoteSourceBinance, QuoteSourceBybit:
		cfg.QuoteSource = src
	default:
		return Config{}, fmt.Errorf("incorrect 'quote_source' param in yaml config: %s (must be coinmarketcap, binance or bybit)", c.QuoteSource)
	}

	switch src := strings.ToLower(withDefault(c.HistoricalSource, HistoricalSourceMarketChart)); src {
	case HistoricalSourceMarketChart, HistoricalSourceFX, HistoricalSourceStore:
		cfg.HistoricalSource = src
	default:
		return Config{}, fmt.Errorf("incorrect 'historical_source' param in yaml config: %s (must be marketchart, fx or store)", c.HistoricalSource)
	}

	cacheCfg, err := c.Cache.build()
	if err != nil {
		return Config{}, err
	}
	cfg.Cache = cacheCfg

	if cfg.PacingInterval, err = parseDuration("pacing_interval", c.PacingInterval, defaultPacingInterval); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = parseDuration("http_timeout", c.HTTPTimeout, defaultHTTPTimeout); err != nil {
		return Config{}, err
	}

	switch level := strings.ToLower(withDefault(c.LogLevel, defaultLogLevel)); level {
	case "debug", "info", "warn", "error":
		cfg.LogLevel = level
	default:
		return Config{}, fmt.Errorf("incorrect 'log_level' param in yaml config: %s (must be debug, info, warn or error)", c.LogLevel)
	}

	return cfg, nil
}

func (c CacheTmp) build() (Cache, error) {
	cfg := Cache{
		RedisAddr:     withDefault(c.RedisAddr, defaultRedisAddr),
		RedisPassword: c.RedisPassword,
	}

	switch backend := strings.ToLower(withDefault(c.Backend, cache.BackendMemory)); backend {
	case cache.BackendMemory, cache.BackendRedis:
		cfg.Backend = backend
	default:
		return Cache{}, fmt.Errorf("incorrect 'cache.backend' param in yaml config: %s (must be memory or redis)", c.Backend)
	}

	if c.RedisDB != "" {
		db, err := strconv.Atoi(c.RedisDB)
		if err != nil || db < 0 {
			return Cache{}, fmt.Errorf("incorrect 'cache.redis_db' param in yaml config: %s (must be a non-negative integer)", c.RedisDB)
		}
		cfg.RedisDB = db
	}

	var err error
	if cfg.QuoteTTL, err = parseTTL("cache.quote_ttl", c.QuoteTTL, defaultQuoteTTL); err != nil {
		return Cache{}, err
	}
	if cfg.HistoricalTTL, err = parseTTL("cache.historical_ttl", c.HistoricalTTL, defaultHistoricalTTL); err != nil {
		return Cache{}, err
	}

	return cfg, nil
}

func parseDuration(name, raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (correct format is 300s): %s", name, raw)
	}
	return d, nil
}

// parseTTL rejects zero, the cache backends treat it as "never expire".
func parseTTL(name, raw string, def time.Duration) (time.Duration, error) {
	d, err := parseDuration(name, raw, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("incorrect '%s' param in yaml config (must be positive): %s", name, raw)
	}
	return d, nil
}

func withDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func withEnv(value, env string) string {
	return withDefault(value, os.Getenv(env))
}

func allSymbols(raw []string) []domain.Symbol {
	symbols := make([]domain.Symbol, 0, len(raw))
	for _, s := range raw {
		symbols = append(symbols, domain.NewSymbol(s))
	}
	return symbols
}
