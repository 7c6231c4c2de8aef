package domain

import "github.com/shopspring/decimal"

// VolCategory buckets a percent volatility figure. The breakpoints are
// exhaustive and non-overlapping: <2% Low, 2-5% Moderate, 5-10% High,
// >=10% Extreme.
type VolCategory int

const (
	VolLow VolCategory = iota
	VolModerate
	VolHigh
	VolExtreme
)

// String returns the category name.
func (c VolCategory) String() string {
	switch c {
	case VolLow:
		return "low"
	case VolModerate:
		return "moderate"
	case VolHigh:
		return "high"
	case VolExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (c VolCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// CategoryForPct maps a percent volatility to its category.
func CategoryForPct(pct float64) VolCategory {
	switch {
	case pct < 2:
		return VolLow
	case pct < 5:
		return VolModerate
	case pct < 10:
		return VolHigh
	default:
		return VolExtreme
	}
}

// VolTrend describes how short-horizon volatility compares to the longer
// horizons.
type VolTrend string

const (
	TrendIncreasing VolTrend = "increasing"
	TrendDecreasing VolTrend = "decreasing"
	TrendStable     VolTrend = "stable"
	TrendVolatile   VolTrend = "volatile"
)

// WindowStat is the per-timeframe volatility statistic (stdev/mean as a
// percent) together with the sample count it was computed from.
type WindowStat struct {
	Timeframe string  `json:"timeframe"`
	Pct       float64 `json:"pct"`
	Samples   int     `json:"samples"`
}

// Valid reports whether the window held enough samples to contribute to the
// blended category.
func (w WindowStat) Valid() bool { return w.Samples >= 2 }

// VolatilityContext is the analyzer's output for one pair: the per-window
// statistics, the blended (most severe) category, the trend, and the derived
// quoting adjustments.
type VolatilityContext struct {
	Pair             string          `json:"pair"`
	Short            WindowStat      `json:"short"`
	Medium           WindowStat      `json:"medium"`
	Long             WindowStat      `json:"long"`
	Blended          VolCategory     `json:"blended"`
	Trend            VolTrend        `json:"trend"`
	SpreadMultiplier decimal.Decimal `json:"spread_multiplier"`
	SizeMultiplier   decimal.Decimal `json:"size_multiplier"`
}

// CategoryStep returns how many severity steps the blended category sits
// above Low. Used by the simulator's failure model.
func (v VolatilityContext) CategoryStep() int { return int(v.Blended) }
