// Package config defines the top-level configuration for the signal engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by AEROBOT_* environment
// variables.
type Config struct {
	Market     MarketConfig     `toml:"market"`
	DEX        DEXConfig        `toml:"dex"`
	CEX        CEXConfig        `toml:"cex"`
	Engine     EngineConfig     `toml:"engine"`
	Volatility VolatilityConfig `toml:"volatility"`
	Detector   DetectorConfig   `toml:"detector"`
	Risk       RiskConfig       `toml:"risk"`
	MM         MMConfig         `toml:"market_making"`
	Sim        SimConfig        `toml:"execution_sim"`
	Breaker    BreakerConfig    `toml:"circuit_breaker"`
	Retry      RetryConfig      `toml:"retry"`
	Output     OutputConfig     `toml:"output"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	LogLevel   string           `toml:"log_level"`
}

// MarketConfig identifies the single pair under observation on both venues.
type MarketConfig struct {
	// Pair is the human-readable name carried on every record.
	Pair string `toml:"pair"`
	// Symbol is the exchange ticker symbol, e.g. "ETHUSDC".
	Symbol string `toml:"symbol"`
	// PoolAddress is the Aerodrome pool contract.
	PoolAddress string `toml:"pool_address"`
	// BaseIsToken0 says whether reserve0 holds the base asset.
	BaseIsToken0 bool `toml:"base_is_token0"`
	// BaseDecimals and QuoteDecimals scale the raw pool reserves.
	BaseDecimals  int `toml:"base_decimals"`
	QuoteDecimals int `toml:"quote_decimals"`
}

// DEXConfig holds the chain RPC parameters.
type DEXConfig struct {
	RPCURL       string   `toml:"rpc_url"`
	PollInterval duration `toml:"poll_interval"`
}

// CEXConfig holds the exchange API parameters.
type CEXConfig struct {
	BaseURL      string   `toml:"base_url"`
	WSURL        string   `toml:"ws_url"`
	UseWebsocket bool     `toml:"use_websocket"`
	PollInterval duration `toml:"poll_interval"`
}

// EngineConfig paces the detection cycle.
type EngineConfig struct {
	CycleInterval  duration `toml:"cycle_interval"`
	StalenessBound duration `toml:"staleness_bound"`
}

// VolatilityConfig tunes the analyzer.
type VolatilityConfig struct {
	// HighMultiplier is the spread multiplier for the High category.
	HighMultiplier float64 `toml:"high_multiplier"`
	// TrendRatio is the short/medium ratio that classifies Volatile.
	TrendRatio float64 `toml:"trend_ratio"`
	// NoiseFloorPct is the minimum slope (percentage points) for a trend.
	NoiseFloorPct float64 `toml:"noise_floor_pct"`
}

// DetectorConfig holds the opportunity detection thresholds.
type DetectorConfig struct {
	TradeSizeETH         float64 `toml:"trade_size_eth"`
	MinProfitUSD         float64 `toml:"min_profit_usd"`
	MinSpreadPct         float64 `toml:"min_spread_pct"`
	MaxPriceDeviationPct float64 `toml:"max_price_deviation_pct"`
	MaxPoolFraction      float64 `toml:"max_pool_fraction"`
	GasUnits             int     `toml:"gas_units"`
	FallbackGasGwei      float64 `toml:"fallback_gas_gwei"`
	SlippageToleranceBps float64 `toml:"slippage_tolerance_bps"`
	EnableSafetyChecks   bool    `toml:"enable_safety_checks"`
}

// RiskConfig weights the composite score.
type RiskConfig struct {
	WeightInventory  float64 `toml:"weight_inventory"`
	WeightLiquidity  float64 `toml:"weight_liquidity"`
	WeightVolatility float64 `toml:"weight_volatility"`
}

// MMConfig tunes the market-making strategy engine.
type MMConfig struct {
	Enabled            bool    `toml:"enabled"`
	BaseSpreadBps      float64 `toml:"base_spread_bps"`
	MaxPositionSizeETH float64 `toml:"max_position_size_eth"`
	RebalanceThreshold float64 `toml:"rebalance_threshold"`
	HoldCeiling        float64 `toml:"hold_ceiling"`
}

// SimConfig tunes the execution simulator.
type SimConfig struct {
	Enabled              bool    `toml:"enabled"`
	Seed                 int64   `toml:"seed"`
	BaseGasGwei          float64 `toml:"base_gas_gwei"`
	MaxGasPriceGwei      float64 `toml:"max_gas_price_gwei"`
	SlippageToleranceBps float64 `toml:"slippage_tolerance_bps"`
	RiskCeiling          float64 `toml:"risk_ceiling"`
}

// BreakerConfig tunes the per-dependency circuit breakers.
type BreakerConfig struct {
	Threshold int      `toml:"threshold"`
	Cooldown  duration `toml:"cooldown"`
}

// RetryConfig tunes the backoff policy for venue calls.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   duration `toml:"base_delay"`
	MaxDelay    duration `toml:"max_delay"`
}

// OutputConfig locates the JSONL research files.
type OutputConfig struct {
	Dir string `toml:"dir"`
}

// PostgresConfig holds the optional record persistence parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds the optional live-surface parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds the optional archive parameters.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	KeyPrefix       string   `toml:"key_prefix"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// duration wraps time.Duration for TOML decoding of strings like "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: WETH/USDC on Base against
// Binance, paper-only, all optional surfaces disabled.
func Defaults() Config {
	return Config{
		Market: MarketConfig{
			Pair:          "WETH/USDC",
			Symbol:        "ETHUSDC",
			BaseIsToken0:  true,
			BaseDecimals:  18,
			QuoteDecimals: 6,
		},
		DEX: DEXConfig{
			RPCURL:       "https://mainnet.base.org",
			PollInterval: duration{5 * time.Second},
		},
		CEX: CEXConfig{
			BaseURL:      "https://api.binance.com",
			WSURL:        "wss://stream.binance.com:9443",
			UseWebsocket: false,
			PollInterval: duration{5 * time.Second},
		},
		Engine: EngineConfig{
			CycleInterval:  duration{5 * time.Second},
			StalenessBound: duration{10 * time.Second},
		},
		Volatility: VolatilityConfig{
			HighMultiplier: 2.0,
			TrendRatio:     1.2,
			NoiseFloorPct:  0.25,
		},
		Detector: DetectorConfig{
			TradeSizeETH:         0.1,
			MinProfitUSD:         1.0,
			MinSpreadPct:         0.05,
			MaxPriceDeviationPct: 10,
			MaxPoolFraction:      0.01,
			GasUnits:             150_000,
			FallbackGasGwei:      20,
			SlippageToleranceBps: 50,
			EnableSafetyChecks:   true,
		},
		Risk: RiskConfig{
			WeightInventory:  1,
			WeightLiquidity:  1,
			WeightVolatility: 1,
		},
		MM: MMConfig{
			Enabled:            true,
			BaseSpreadBps:      30,
			MaxPositionSizeETH: 1.0,
			RebalanceThreshold: 0.2,
			HoldCeiling:        80,
		},
		Sim: SimConfig{
			Enabled:              false,
			Seed:                 0,
			BaseGasGwei:          20,
			MaxGasPriceGwei:      50,
			SlippageToleranceBps: 50,
			RiskCeiling:          80,
		},
		Breaker: BreakerConfig{
			Threshold: 5,
			Cooldown:  duration{30 * time.Second},
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   duration{500 * time.Millisecond},
			MaxDelay:    duration{10 * time.Second},
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "aerobot",
			User:          "aerobot",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 20,
		},
		S3: S3Config{
			Region:          "us-east-1",
			Bucket:          "aerobot-data",
			ForcePathStyle:  true,
			KeyPrefix:       "aerobot",
			ArchiveInterval: duration{time.Hour},
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency and returns all
// problems at once.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Market.Pair == "" {
		errs = append(errs, "market: pair must not be empty")
	}
	if c.Market.Symbol == "" {
		errs = append(errs, "market: symbol must not be empty")
	}
	if c.Market.PoolAddress == "" {
		errs = append(errs, "market: pool_address must not be empty")
	}
	if c.Market.BaseDecimals <= 0 || c.Market.QuoteDecimals <= 0 {
		errs = append(errs, "market: base_decimals and quote_decimals must be positive")
	}

	if c.DEX.RPCURL == "" {
		errs = append(errs, "dex: rpc_url must not be empty")
	}
	if c.DEX.PollInterval.Duration <= 0 {
		errs = append(errs, "dex: poll_interval must be positive")
	}
	if c.CEX.BaseURL == "" {
		errs = append(errs, "cex: base_url must not be empty")
	}
	if c.CEX.PollInterval.Duration <= 0 {
		errs = append(errs, "cex: poll_interval must be positive")
	}

	if c.Engine.CycleInterval.Duration <= 0 {
		errs = append(errs, "engine: cycle_interval must be positive")
	}
	if c.Engine.StalenessBound.Duration <= 0 {
		errs = append(errs, "engine: staleness_bound must be positive")
	}

	if c.Detector.TradeSizeETH <= 0 {
		errs = append(errs, "detector: trade_size_eth must be > 0")
	}
	if c.Detector.MinSpreadPct <= 0 {
		errs = append(errs, "detector: min_spread_pct must be > 0")
	}
	if c.Detector.MaxPriceDeviationPct <= 0 {
		errs = append(errs, "detector: max_price_deviation_pct must be > 0")
	}
	if c.Detector.MaxPoolFraction <= 0 || c.Detector.MaxPoolFraction > 1 {
		errs = append(errs, "detector: max_pool_fraction must be in (0, 1]")
	}
	if c.Detector.GasUnits <= 0 {
		errs = append(errs, "detector: gas_units must be > 0")
	}

	if c.Risk.WeightInventory < 0 || c.Risk.WeightLiquidity < 0 || c.Risk.WeightVolatility < 0 {
		errs = append(errs, "risk: weights must not be negative")
	}
	if c.Risk.WeightInventory+c.Risk.WeightLiquidity+c.Risk.WeightVolatility <= 0 {
		errs = append(errs, "risk: at least one weight must be positive")
	}

	if c.MM.Enabled {
		if c.MM.BaseSpreadBps <= 0 {
			errs = append(errs, "market_making: base_spread_bps must be > 0 when enabled")
		}
		if c.MM.MaxPositionSizeETH <= 0 {
			errs = append(errs, "market_making: max_position_size_eth must be > 0 when enabled")
		}
		if c.MM.RebalanceThreshold <= 0 || c.MM.RebalanceThreshold > 1 {
			errs = append(errs, "market_making: rebalance_threshold must be in (0, 1]")
		}
	}

	if c.Sim.Enabled {
		if c.Sim.MaxGasPriceGwei <= 0 {
			errs = append(errs, "execution_sim: max_gas_price_gwei must be > 0 when enabled")
		}
		if c.Sim.SlippageToleranceBps <= 0 {
			errs = append(errs, "execution_sim: slippage_tolerance_bps must be > 0 when enabled")
		}
	}

	if c.Breaker.Threshold < 1 {
		errs = append(errs, "circuit_breaker: threshold must be >= 1")
	}
	if c.Breaker.Cooldown.Duration <= 0 {
		errs = append(errs, "circuit_breaker: cooldown must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, "retry: max_attempts must be >= 1")
	}

	if c.Output.Dir == "" {
		errs = append(errs, "output: dir must not be empty")
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
