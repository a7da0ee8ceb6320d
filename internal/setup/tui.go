package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/coinrates/config"
	"github.com/vadiminshakov/coinrates/internal/domain"
)

// DefaultFileName file the wizard writes when no path is given.
const DefaultFileName = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers raw wizard input.
type answers struct {
	port             string
	dataDir          string
	symbols          string
	quoteSource      string
	quoteAsset       string
	historicalSource string
	cmcAPIKey        string
	coinGeckoAPIKey  string
	fxAPIKey         string
	cacheBackend     string
	redisAddr        string
	pacingInterval   string
}

func defaultAnswers() answers {
	return answers{
		port:             "8080",
		dataDir:          "./data",
		symbols:          domain.JoinSymbols(domain.DefaultSymbols),
		quoteSource:      config.QuoteSourceCoinMarketCap,
		quoteAsset:       "EUR",
		historicalSource: config.HistoricalSourceMarketChart,
		cacheBackend:     "memory",
		redisAddr:        "localhost:6379",
		pacingInterval:   "2s",
	}
}

func clearScreen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("COINRATES CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to
// path. It returns the path written.
func RunTUI(path string) (string, error) {
	if path == "" {
		path = DefaultFileName
	}
	a := defaultAnswers()
	var confirm bool

	// step 1: welcome
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("COINRATES CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Prices and history for your portfolio, configured in a minute.\n"))

	fmt.Println(stepStyle.Render("STEP 1: SOURCES"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Latest prices source").
				Options(
					huh.NewOption("CoinMarketCap", config.QuoteSourceCoinMarketCap),
					huh.NewOption("Binance (public tickers)", config.QuoteSourceBinance),
					huh.NewOption("Bybit (public spot tickers)", config.QuoteSourceBybit),
				).
				Value(&a.quoteSource),
			huh.NewSelect[string]().
				Title("Default historical source").
				Options(
					huh.NewOption("CoinGecko market chart", config.HistoricalSourceMarketChart),
					huh.NewOption("Exchange rates time series", config.HistoricalSourceFX),
					huh.NewOption("Local price history", config.HistoricalSourceStore),
				).
				Value(&a.historicalSource),
		),
	).Run()
	if err != nil {
		return "", err
	}

	clearScreen("STEP 2: ASSETS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Supported symbols").
				Description("Comma separated tickers (e.g. BTC,ETH,SOL)").
				Value(&a.symbols).
				Validate(validateSymbols),
		),
	).Run()
	if err != nil {
		return "", err
	}

	clearScreen("STEP 3: API KEYS")
	keyFields := []huh.Field{
		huh.NewInput().
			Title("CoinGecko API key").
			Description("Leave empty to read COINGECKO_API_KEY").
			Value(&a.coinGeckoAPIKey).
			EchoMode(huh.EchoModePassword),
		huh.NewInput().
			Title("Exchange rates API key").
			Description("Leave empty to read EXCHANGERATES_API_KEY").
			Value(&a.fxAPIKey).
			EchoMode(huh.EchoModePassword),
	}
	if a.quoteSource == config.QuoteSourceCoinMarketCap {
		keyFields = append([]huh.Field{
			huh.NewInput().
				Title("CoinMarketCap API key").
				Description("Leave empty to read CMC_API_KEY").
				Value(&a.cmcAPIKey).
				EchoMode(huh.EchoModePassword),
		}, keyFields...)
	} else {
		keyFields = append(keyFields, huh.NewInput().
			Title("Exchange quote asset").
			Description("Tickers are read as <SYMBOL><ASSET>, e.g. BTCEUR").
			Value(&a.quoteAsset))
	}
	if err = huh.NewForm(huh.NewGroup(keyFields...)).Run(); err != nil {
		return "", err
	}

	clearScreen("STEP 4: RUNTIME")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP port").
				Value(&a.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Data directory").
				Value(&a.dataDir),
			huh.NewInput().
				Title("Market chart pacing").
				Description("Pause between upstream requests (e.g. 2s)").
				Value(&a.pacingInterval).
				Validate(validateDuration),
			huh.NewSelect[string]().
				Title("Cache backend").
				Options(
					huh.NewOption("In memory", "memory"),
					huh.NewOption("Redis", "redis"),
				).
				Value(&a.cacheBackend),
		),
	).Run()
	if err != nil {
		return "", err
	}

	if a.cacheBackend == "redis" {
		clearScreen("STEP 5: REDIS")
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Redis address").
					Value(&a.redisAddr),
			),
		).Run()
		if err != nil {
			return "", err
		}
	}

	clearScreen("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(a)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	if err := config.Save(path, buildConfig(a)); err != nil {
		return "", fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting server...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return path, nil
}

func summary(a answers) string {
	return fmt.Sprintf(
		"Quotes: %s\nHistory: %s\nSymbols: %s\nPort: %s\nCache: %s\n",
		a.quoteSource, a.historicalSource, a.symbols, a.port, a.cacheBackend,
	)
}

func buildConfig(a answers) config.ConfigTmp {
	var symbols []string
	for _, s := range strings.Split(a.symbols, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}

	cfg := config.ConfigTmp{
		Port:             a.port,
		DataDir:          a.dataDir,
		Symbols:          symbols,
		QuoteSource:      a.quoteSource,
		HistoricalSource: a.historicalSource,
		CoinMarketCap:    config.SourceTmp{APIKey: a.cmcAPIKey},
		CoinGecko:        config.CoinGeckoTmp{APIKey: a.coinGeckoAPIKey},
		ExchangeRates:    config.SourceTmp{APIKey: a.fxAPIKey},
		Cache:            config.CacheTmp{Backend: a.cacheBackend},
		PacingInterval:   a.pacingInterval,
	}
	switch a.quoteSource {
	case config.QuoteSourceBinance:
		cfg.Binance = config.ExchangeTmp{QuoteAsset: strings.ToUpper(a.quoteAsset)}
	case config.QuoteSourceBybit:
		cfg.Bybit = config.ExchangeTmp{QuoteAsset: strings.ToUpper(a.quoteAsset)}
	}
	if a.cacheBackend == "redis" {
		cfg.Cache.RedisAddr = a.redisAddr
	}
	return cfg
}

func validateSymbols(s string) error {
	count := 0
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for _, r := range part {
			if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("invalid ticker %q", part)
			}
		}
		count++
	}
	if count == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	return nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if p < 1 || p > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 2s or 500ms")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
