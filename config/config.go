package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Binance BinanceConfig `mapstructure:"binance"`
	Market  MarketConfig  `mapstructure:"market"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	API     APIConfig     `mapstructure:"api"`
}

type BinanceConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type WSConfig struct {
	URL string `mapstructure:"url"`
}

// MarketConfig defines the market-data defaults: which pairs are supported,
// which one is selected at startup, and the shape of each widget feed.
type MarketConfig struct {
	Symbols    []string `mapstructure:"symbols"`     // supported pairs, e.g. ["BTCUSDT", "ETHUSDT"]
	Symbol     string   `mapstructure:"symbol"`      // initially selected pair
	Interval   string   `mapstructure:"interval"`    // initial kline interval, e.g. "1h"
	Depth      int      `mapstructure:"depth"`       // order book depth per side
	TradeCap   int      `mapstructure:"trade_cap"`   // recent-trade list length bound
	KlineLimit int      `mapstructure:"kline_limit"` // historical candles per snapshot fetch
	FeedBuffer int      `mapstructure:"feed_buffer"` // per-subscriber frame buffer
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// StorageConfig selects the key-value backend used by the account and
// portfolio repositories.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"` // "memory" or "postgres"
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	// When run via `go run`, resolve the config dir relative to the working
	// directory; otherwise relative to the installed binary.
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "config"))
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	// Support environment variables with dot notation (e.g., BINANCE_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
