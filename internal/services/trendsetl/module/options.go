package module

import (
	"time"

	"trendsetl/internal/core/batch"
	"trendsetl/internal/core/throttle"
	"trendsetl/internal/core/trend"
	"trendsetl/internal/core/watermark"
	"trendsetl/internal/platform/config"
)

// Options controls the run and the upstream client
type Options struct {
	MarketsFile string // TOML catalog override; empty uses the embedded catalog

	Timeframe string
	BatchSize int
	Pace      time.Duration
	Lag       time.Duration
	Scope     trend.Scope

	// upstream client
	BaseURL   string
	HL        string
	TZ        int
	Timeout   time.Duration
	UserAgent string
}

// FromConfig reads CORE_TRENDS_* values from process config/env
func FromConfig(cfg config.Conf) Options {
	tc := cfg.Prefix("CORE_TRENDS_")
	return Options{
		MarketsFile: tc.MayString("MARKETS_FILE", ""),
		Timeframe:   tc.MayString("TIMEFRAME", trend.DefaultTimeframe),
		BatchSize:   tc.MayIntIn("BATCH_SIZE", batch.MaxSize, 1, batch.MaxSize),
		Pace:        tc.MayDuration("PACE", throttle.DefaultInterval),
		Lag:         tc.MayDuration("COMPLETENESS_LAG", watermark.DefaultLag),
		Scope:       trend.Scope(tc.MayEnum("WATERMARK_SCOPE", string(trend.ScopeGlobal), string(trend.ScopeGlobal), string(trend.ScopeMarket))),
		BaseURL:     tc.MayString("BASE_URL", ""),
		HL:          tc.MayString("HL", "en-US"),
		TZ:          tc.MayInt("TZ", 480),
		Timeout:     tc.MayDuration("HTTP_TIMEOUT", 30*time.Second),
		UserAgent:   tc.MayString("UA", ""),
	}
}
