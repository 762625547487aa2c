package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"candlefuse/internal/market"

	"github.com/spf13/viper"
)

type Config struct {
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	OKX        OKXConfig        `mapstructure:"okx"`
	Binance    BinanceConfig    `mapstructure:"binance"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Yahoo      YahooConfig      `mapstructure:"yahoo"`
	Snapshot   SnapshotConfig   `mapstructure:"snapshot"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
}

// PipelineConfig drives one batch run.
type PipelineConfig struct {
	Bar          string         `mapstructure:"bar"`           // backbone bar width, e.g. "4H"
	DailyBar     string         `mapstructure:"daily_bar"`     // secondary candle-only bar; empty disables
	LookbackDays int            `mapstructure:"lookback_days"` // history horizon in days
	MaxAge       time.Duration  `mapstructure:"max_age"`       // freshness bound; 0 means three bar widths
	Providers    []string       `mapstructure:"providers"`     // fallback order
	AssetPause   time.Duration  `mapstructure:"asset_pause"`   // pause between assets
	Assets       []market.Asset `mapstructure:"assets"`
}

type RESTConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Proxy     string        `mapstructure:"proxy"` // optional outbound proxy URL
	UserAgent string        `mapstructure:"user_agent"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig trips a provider's circuit after consecutive transport faults.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"` // 0 disables the breaker
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

// PaginationConfig bounds one paginated fetch.
type PaginationConfig struct {
	PageSize int           `mapstructure:"page_size"`
	MaxPages int           `mapstructure:"max_pages"` // hard iteration cap
	Throttle time.Duration `mapstructure:"throttle"`  // minimum delay between pages
}

type OKXConfig struct {
	REST           RESTConfig       `mapstructure:"rest"`
	Candles        PaginationConfig `mapstructure:"candles"`
	Funding        PaginationConfig `mapstructure:"funding"`
	OpenInterest   PaginationConfig `mapstructure:"open_interest"`
	OIPeriod       string           `mapstructure:"oi_period"`        // native open-interest resolution
	HorizonPadDays int              `mapstructure:"horizon_pad_days"` // extra days fetched for candles
}

type BinanceConfig struct {
	REST    RESTConfig       `mapstructure:"rest"`
	Candles PaginationConfig `mapstructure:"candles"`
}

// AggregatorConfig configures the SDK-backed provider. Venues are tried in order.
type AggregatorConfig struct {
	Venues         []string         `mapstructure:"venues"`
	BybitBaseURL   string           `mapstructure:"bybit_base_url"`
	BybitCategory  string           `mapstructure:"bybit_category"`
	BinanceBaseURL string           `mapstructure:"binance_base_url"`
	Timeout        time.Duration    `mapstructure:"timeout"`
	Proxy          string           `mapstructure:"proxy"`
	Candles        PaginationConfig `mapstructure:"candles"`
}

type YahooConfig struct {
	REST     RESTConfig `mapstructure:"rest"`
	Interval string     `mapstructure:"interval"` // native vendor interval, resampled to the bar
}

// SnapshotConfig configures the live market snapshot.
type SnapshotConfig struct {
	REST       RESTConfig `mapstructure:"rest"`
	RSIPeriod  int        `mapstructure:"rsi_period"`
	RSICandles int        `mapstructure:"rsi_candles"`
}

type CacheConfig struct {
	Backend  string        `mapstructure:"backend"` // "file", "redis" or "memory"
	TTL      time.Duration `mapstructure:"ttl"`
	File     string        `mapstructure:"file"`
	Key      string        `mapstructure:"key"`
	Interval time.Duration `mapstructure:"interval"` // scheduler period
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StorageConfig struct {
	CSV      CSVConfig          `mapstructure:"csv"`
	Postgres PostgresSinkConfig `mapstructure:"postgres"`
	S3       S3Config           `mapstructure:"s3"`
}

type CSVConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type PostgresSinkConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	CreateDB bool `mapstructure:"create_db"`
}

type S3Config struct {
	Enabled         bool   `mapstructure:"enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	PathStyle       bool   `mapstructure:"path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Compression     string `mapstructure:"compression"` // "snappy", "gzip" or none
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // node-exporter textfile path; empty disables
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads config.yaml from dir (or next to the binary when dir is empty)
// and overrides it with environment variables.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir(dir))

	// Support environment variables with dot notation (e.g., OKX_REST_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configDir(dir string) string {
	if dir != "" {
		return dir
	}
	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		return filepath.Join(pwd, "config")
	}
	return filepath.Join(filepath.Dir(ex), "../config")
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := market.ParseBar(c.Pipeline.Bar); err != nil {
		return fmt.Errorf("pipeline.bar: %w", err)
	}
	if c.Pipeline.DailyBar != "" {
		if _, err := market.ParseBar(c.Pipeline.DailyBar); err != nil {
			return fmt.Errorf("pipeline.daily_bar: %w", err)
		}
	}
	if c.Pipeline.LookbackDays <= 0 {
		return fmt.Errorf("pipeline.lookback_days must be positive, got %d", c.Pipeline.LookbackDays)
	}
	if len(c.Pipeline.Assets) == 0 {
		return errors.New("pipeline.assets is empty")
	}
	for i, a := range c.Pipeline.Assets {
		if a.Coin == "" || a.Symbol == "" {
			return fmt.Errorf("pipeline.assets[%d]: coin and symbol are required", i)
		}
	}
	if len(c.Pipeline.Providers) == 0 {
		return errors.New("pipeline.providers is empty")
	}
	if c.Pipeline.MaxAge < 0 {
		return fmt.Errorf("pipeline.max_age must not be negative, got %s", c.Pipeline.MaxAge)
	}
	if c.Cache.Interval <= 0 {
		return fmt.Errorf("cache.interval must be positive, got %s", c.Cache.Interval)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	return nil
}

// MaxAgeFor returns the freshness bound for the given bar.
func (p PipelineConfig) MaxAgeFor(bar market.Bar) time.Duration {
	if p.MaxAge > 0 {
		return p.MaxAge
	}
	return 3 * bar.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.bar", "4H")
	v.SetDefault("pipeline.daily_bar", "1D")
	v.SetDefault("pipeline.lookback_days", 730)
	v.SetDefault("pipeline.max_age", 0) // three bar widths
	v.SetDefault("pipeline.providers", []string{"okx", "binance", "aggregator", "yahoo"})
	v.SetDefault("pipeline.asset_pause", time.Second)
	v.SetDefault("pipeline.assets", []map[string]string{
		{"coin": "BTC", "symbol": "BTC-USDT"},
		{"coin": "ETH", "symbol": "ETH-USDT"},
		{"coin": "BNB", "symbol": "BNB-USDT"},
		{"coin": "DOGE", "symbol": "DOGE-USDT"},
		{"coin": "SOL", "symbol": "SOL-USDT"},
	})

	setRESTDefaults(v, "okx.rest", "https://www.okx.com", 30*time.Second)
	v.SetDefault("okx.candles.page_size", 300)
	v.SetDefault("okx.candles.max_pages", 50)
	v.SetDefault("okx.candles.throttle", 200*time.Millisecond)
	v.SetDefault("okx.funding.page_size", 100)
	v.SetDefault("okx.funding.max_pages", 100)
	v.SetDefault("okx.funding.throttle", 100*time.Millisecond)
	v.SetDefault("okx.open_interest.page_size", 100)
	v.SetDefault("okx.open_interest.max_pages", 500)
	v.SetDefault("okx.open_interest.throttle", 100*time.Millisecond)
	v.SetDefault("okx.oi_period", "1H")
	v.SetDefault("okx.horizon_pad_days", 5)

	setRESTDefaults(v, "binance.rest", "https://api.binance.com", 30*time.Second)
	v.SetDefault("binance.candles.page_size", 1000)
	v.SetDefault("binance.candles.max_pages", 50)
	v.SetDefault("binance.candles.throttle", 200*time.Millisecond)

	v.SetDefault("aggregator.venues", []string{"bybit", "binance"})
	v.SetDefault("aggregator.bybit_base_url", "https://api.bybit.com")
	v.SetDefault("aggregator.bybit_category", "linear")
	v.SetDefault("aggregator.binance_base_url", "https://api.binance.com")
	v.SetDefault("aggregator.timeout", 30*time.Second)
	v.SetDefault("aggregator.proxy", "")
	v.SetDefault("aggregator.candles.page_size", 1000)
	v.SetDefault("aggregator.candles.max_pages", 50)
	v.SetDefault("aggregator.candles.throttle", 200*time.Millisecond)

	setRESTDefaults(v, "yahoo.rest", "https://query1.finance.yahoo.com", 30*time.Second)
	v.SetDefault("yahoo.interval", "1h")

	setRESTDefaults(v, "snapshot.rest", "https://www.okx.com", 10*time.Second)
	v.SetDefault("snapshot.rsi_period", 14)
	v.SetDefault("snapshot.rsi_candles", 100)

	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.ttl", 4*time.Hour)
	v.SetDefault("cache.file", "latest_analysis.json")
	v.SetDefault("cache.key", "candlefuse:latest")
	v.SetDefault("cache.interval", 4*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.csv.enabled", true)
	v.SetDefault("storage.csv.dir", "csv_data")
	v.SetDefault("storage.postgres.enabled", false)
	v.SetDefault("storage.postgres.create_db", false)
	v.SetDefault("storage.s3.enabled", false)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.prefix", "fused")
	v.SetDefault("storage.s3.compression", "snappy")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
}

func setRESTDefaults(v *viper.Viper, prefix, baseURL string, timeout time.Duration) {
	v.SetDefault(prefix+".base_url", baseURL)
	v.SetDefault(prefix+".timeout", timeout)
	v.SetDefault(prefix+".proxy", "")
	v.SetDefault(prefix+".user_agent", "candlefuse/1.0")
	v.SetDefault(prefix+".breaker.max_failures", 3)
	v.SetDefault(prefix+".breaker.open_timeout", time.Minute)
}
