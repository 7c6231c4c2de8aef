package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Market.PoolAddress = "0x1234567890abcdef1234567890abcdef12345678"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate once the pool is set: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
log_level = "debug"

[market]
pool_address = "0xabc"

[detector]
trade_size_eth = 0.25
min_profit_usd = 2.5

[engine]
cycle_interval = "3s"

[execution_sim]
enabled = true
seed = 42
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %s", cfg.LogLevel)
	}
	if cfg.Detector.TradeSizeETH != 0.25 {
		t.Fatalf("trade_size_eth = %v", cfg.Detector.TradeSizeETH)
	}
	if cfg.Engine.CycleInterval.Duration != 3*time.Second {
		t.Fatalf("cycle_interval = %v", cfg.Engine.CycleInterval.Duration)
	}
	if !cfg.Sim.Enabled || cfg.Sim.Seed != 42 {
		t.Fatalf("sim = %+v", cfg.Sim)
	}
	// Untouched defaults survive the merge.
	if cfg.Detector.GasUnits != 150_000 {
		t.Fatalf("gas_units = %d, want default 150000", cfg.Detector.GasUnits)
	}
	if cfg.Market.Pair != "WETH/USDC" {
		t.Fatalf("pair = %s, want default", cfg.Market.Pair)
	}
}

func TestLoadEnvOverridesBeatFile(t *testing.T) {
	t.Setenv("AEROBOT_TRADE_SIZE_ETH", "0.5")
	t.Setenv("AEROBOT_LOG_LEVEL", "warn")
	t.Setenv("ENABLE_EXECUTION_SIM", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detector.TradeSizeETH != 0.5 {
		t.Fatalf("trade_size_eth = %v, want env override 0.5", cfg.Detector.TradeSizeETH)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log_level = %s", cfg.LogLevel)
	}
	if !cfg.Sim.Enabled {
		t.Fatal("compatibility alias ENABLE_EXECUTION_SIM ignored")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Market.PoolAddress = ""
	cfg.Detector.TradeSizeETH = 0
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid config validated")
	}
	msg := err.Error()
	for _, want := range []string{"pool_address", "trade_size_eth", "log_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error does not mention %s: %s", want, msg)
		}
	}
}

func TestValidateOptionalSurfaces(t *testing.T) {
	cfg := Defaults()
	cfg.Market.PoolAddress = "0xabc"

	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled redis with no addr validated")
	}
	cfg.Redis.Enabled = false

	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled s3 with no bucket validated")
	}
}
