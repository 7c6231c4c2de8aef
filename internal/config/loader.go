package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is empty
// or missing), merges it on top of the built-in defaults, applies AEROBOT_*
// environment variable overrides, and returns the final Config. The result
// has NOT been validated; callers invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known AEROBOT_* environment variables and
// overwrites the corresponding fields when set. A handful of bare aliases
// (TRADE_SIZE_ETH and friends) are kept for operators migrating older
// deployments.
func applyEnvOverrides(cfg *Config) {
	// ── Market ──
	setStr(&cfg.Market.Pair, "AEROBOT_PAIR")
	setStr(&cfg.Market.Symbol, "AEROBOT_SYMBOL")
	setStr(&cfg.Market.PoolAddress, "AEROBOT_POOL_ADDRESS")
	setBool(&cfg.Market.BaseIsToken0, "AEROBOT_BASE_IS_TOKEN0")

	// ── Venues ──
	setStr(&cfg.DEX.RPCURL, "AEROBOT_RPC_URL")
	setDuration(&cfg.DEX.PollInterval, "AEROBOT_DEX_POLL_INTERVAL")
	setStr(&cfg.CEX.BaseURL, "AEROBOT_CEX_BASE_URL")
	setStr(&cfg.CEX.WSURL, "AEROBOT_CEX_WS_URL")
	setBool(&cfg.CEX.UseWebsocket, "AEROBOT_CEX_USE_WEBSOCKET")
	setDuration(&cfg.CEX.PollInterval, "AEROBOT_CEX_POLL_INTERVAL")

	// ── Engine ──
	setDuration(&cfg.Engine.CycleInterval, "AEROBOT_CYCLE_INTERVAL")
	setDuration(&cfg.Engine.StalenessBound, "AEROBOT_STALENESS_BOUND")

	// ── Volatility ──
	setFloat64(&cfg.Volatility.HighMultiplier, "AEROBOT_VOLATILITY_MULTIPLIER")
	setFloat64(&cfg.Volatility.TrendRatio, "AEROBOT_VOLATILITY_TREND_RATIO")

	// ── Detector ──
	setFloat64(&cfg.Detector.TradeSizeETH, "AEROBOT_TRADE_SIZE_ETH")
	setFloat64(&cfg.Detector.TradeSizeETH, "TRADE_SIZE_ETH") // compatibility alias
	setFloat64(&cfg.Detector.MinProfitUSD, "AEROBOT_MIN_PROFIT_USD")
	setFloat64(&cfg.Detector.MinProfitUSD, "MIN_PROFIT_USD") // compatibility alias
	setFloat64(&cfg.Detector.MinSpreadPct, "AEROBOT_MIN_SPREAD_PCT")
	setFloat64(&cfg.Detector.MaxPriceDeviationPct, "AEROBOT_MAX_PRICE_DEVIATION_PCT")
	setFloat64(&cfg.Detector.MaxPoolFraction, "AEROBOT_MAX_POOL_FRACTION")
	setInt(&cfg.Detector.GasUnits, "AEROBOT_GAS_UNITS")
	setFloat64(&cfg.Detector.FallbackGasGwei, "AEROBOT_FALLBACK_GAS_GWEI")
	setFloat64(&cfg.Detector.SlippageToleranceBps, "AEROBOT_SLIPPAGE_TOLERANCE_BPS")
	setFloat64(&cfg.Detector.SlippageToleranceBps, "SLIPPAGE_TOLERANCE_BPS") // compatibility alias
	setBool(&cfg.Detector.EnableSafetyChecks, "AEROBOT_ENABLE_SAFETY_CHECKS")
	setBool(&cfg.Detector.EnableSafetyChecks, "ENABLE_SAFETY_CHECKS") // compatibility alias

	// ── Risk ──
	setFloat64(&cfg.Risk.WeightInventory, "AEROBOT_RISK_WEIGHT_INVENTORY")
	setFloat64(&cfg.Risk.WeightLiquidity, "AEROBOT_RISK_WEIGHT_LIQUIDITY")
	setFloat64(&cfg.Risk.WeightVolatility, "AEROBOT_RISK_WEIGHT_VOLATILITY")

	// ── Market making ──
	setBool(&cfg.MM.Enabled, "AEROBOT_MM_ENABLED")
	setBool(&cfg.MM.Enabled, "ENABLE_MARKET_MAKING") // compatibility alias
	setFloat64(&cfg.MM.BaseSpreadBps, "AEROBOT_BASE_SPREAD_BPS")
	setFloat64(&cfg.MM.BaseSpreadBps, "BASE_SPREAD_BPS") // compatibility alias
	setFloat64(&cfg.MM.MaxPositionSizeETH, "AEROBOT_MAX_POSITION_SIZE_ETH")
	setFloat64(&cfg.MM.MaxPositionSizeETH, "MAX_POSITION_SIZE_ETH") // compatibility alias
	setFloat64(&cfg.MM.RebalanceThreshold, "AEROBOT_REBALANCE_THRESHOLD")
	setFloat64(&cfg.MM.HoldCeiling, "AEROBOT_HOLD_CEILING")

	// ── Execution sim ──
	setBool(&cfg.Sim.Enabled, "AEROBOT_SIM_ENABLED")
	setBool(&cfg.Sim.Enabled, "ENABLE_EXECUTION_SIM") // compatibility alias
	setInt64(&cfg.Sim.Seed, "AEROBOT_SIM_SEED")
	setFloat64(&cfg.Sim.BaseGasGwei, "AEROBOT_SIM_BASE_GAS_GWEI")
	setFloat64(&cfg.Sim.MaxGasPriceGwei, "AEROBOT_MAX_GAS_PRICE_GWEI")
	setFloat64(&cfg.Sim.MaxGasPriceGwei, "MAX_GAS_PRICE_GWEI") // compatibility alias
	setFloat64(&cfg.Sim.SlippageToleranceBps, "AEROBOT_SIM_SLIPPAGE_TOLERANCE_BPS")
	setFloat64(&cfg.Sim.RiskCeiling, "AEROBOT_SIM_RISK_CEILING")

	// ── Reliability ──
	setInt(&cfg.Breaker.Threshold, "AEROBOT_BREAKER_THRESHOLD")
	setDuration(&cfg.Breaker.Cooldown, "AEROBOT_BREAKER_COOLDOWN")
	setInt(&cfg.Retry.MaxAttempts, "AEROBOT_RETRY_MAX_ATTEMPTS")
	setDuration(&cfg.Retry.BaseDelay, "AEROBOT_RETRY_BASE_DELAY")
	setDuration(&cfg.Retry.MaxDelay, "AEROBOT_RETRY_MAX_DELAY")

	// ── Output ──
	setStr(&cfg.Output.Dir, "AEROBOT_OUTPUT_DIR")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "AEROBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "AEROBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "AEROBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "AEROBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "AEROBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "AEROBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "AEROBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "AEROBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "AEROBOT_POSTGRES_POOL_MAX_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "AEROBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "AEROBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "AEROBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "AEROBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "AEROBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "AEROBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "AEROBOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "AEROBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "AEROBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "AEROBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "AEROBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "AEROBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "AEROBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "AEROBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "AEROBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.KeyPrefix, "AEROBOT_S3_KEY_PREFIX")
	setDuration(&cfg.S3.ArchiveInterval, "AEROBOT_S3_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "AEROBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
