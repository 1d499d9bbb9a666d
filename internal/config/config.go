// Package config loads the engine's YAML configuration (spec §6):
// market identity, execution mode, strategy selection, risk limits,
// breaker thresholds, and telemetry/logging settings, with decimal
// fields parsed at this boundary and nowhere else. Grounded on the
// teacher's internal/config/config.go shape (spf13/viper, mapstructure
// tags, a top-level Load + Validate pair) generalized from a
// Polymarket-wallet-specific schema to this engine's market/execution/
// strategy/risk/breakers/telemetry sections.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/bogengine/mm-core/internal/breaker"
	"github.com/bogengine/mm-core/internal/core"
	"github.com/bogengine/mm-core/internal/risk"
	"github.com/bogengine/mm-core/internal/strategy"
	"github.com/bogengine/mm-core/pkg/money"
)

// Config is the top-level configuration, mapping directly to the YAML
// shape documented in SPEC_FULL §6.
type Config struct {
	Market    MarketConfig    `mapstructure:"market"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Breakers  BreakersConfig  `mapstructure:"breakers"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// MarketConfig identifies the single market this engine instance trades.
type MarketConfig struct {
	MarketID uint64 `mapstructure:"market_id"`
	DexType  uint8  `mapstructure:"dex_type"`
}

// ExecutionConfig selects and configures the executor backend.
type ExecutionConfig struct {
	Mode        string      `mapstructure:"mode"` // simulated | production
	FillMode    string      `mapstructure:"fill_mode"` // instant | realistic
	JournalPath string      `mapstructure:"journal_path"`
	Venue       VenueConfig `mapstructure:"venue"`
}

// VenueConfig addresses the production venue client; unused in simulated mode.
type VenueConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
}

// StrategyConfig selects and parameterizes one quoting strategy.
type StrategyConfig struct {
	Type           string               `mapstructure:"type"` // simple_spread | inventory_based
	SimpleSpread   SimpleSpreadConfig   `mapstructure:"simple_spread"`
	InventoryBased InventoryBasedConfig `mapstructure:"inventory_based"`
}

type SimpleSpreadConfig struct {
	SpreadBps    decimal.Decimal `mapstructure:"spread_bps"`
	OrderSize    decimal.Decimal `mapstructure:"order_size"`
	MinSpreadBps decimal.Decimal `mapstructure:"min_spread_bps"`
}

type InventoryBasedConfig struct {
	TargetInventory decimal.Decimal `mapstructure:"target_inventory"`
	RiskAversion    float64         `mapstructure:"risk_aversion"`
	Volatility      float64         `mapstructure:"volatility"`
	TimeHorizonSecs float64         `mapstructure:"time_horizon_secs"`
	OrderSize       decimal.Decimal `mapstructure:"order_size"`
}

// RiskConfig sets the hard pre-trade and position limits of spec §4.6.
type RiskConfig struct {
	MaxPosition          decimal.Decimal `mapstructure:"max_position"`
	MaxShort             decimal.Decimal `mapstructure:"max_short"`
	MaxOrderSize         decimal.Decimal `mapstructure:"max_order_size"`
	MinOrderSize         decimal.Decimal `mapstructure:"min_order_size"`
	MaxOutstandingOrders int             `mapstructure:"max_outstanding_orders"`
	MaxDailyLoss         decimal.Decimal `mapstructure:"max_daily_loss"`
	MaxDrawdownPct       float64         `mapstructure:"max_drawdown_pct"`
}

// BreakersConfig tunes the flash-crash and stale-data breakers of spec §4.4/§4.5.
type BreakersConfig struct {
	MaxSpreadBps                float64         `mapstructure:"max_spread_bps"`
	MinLiquidity                decimal.Decimal `mapstructure:"min_liquidity"`
	MaxJumpBps                  float64         `mapstructure:"max_jump_bps"`
	ConsecutiveViolationsToTrip int             `mapstructure:"consecutive_violations_to_trip"`
	StaleMaxAgeMs               int             `mapstructure:"stale_max_age_ms"`
	StaleMaxEmptyPolls          uint64          `mapstructure:"stale_max_empty_polls"`
}

// TelemetryConfig controls the Prometheus metrics server.
type TelemetryConfig struct {
	PrometheusPort       int `mapstructure:"prometheus_port"`
	SnapshotIntervalSecs int `mapstructure:"snapshot_interval_secs"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// decimalDecodeHook parses a YAML scalar into shopspring/decimal.Decimal,
// the one place a human-facing decimal value survives past config load
// (everything downstream converts it to fixed-point via pkg/money).
func decimalDecodeHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(decimal.Decimal{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return decimal.NewFromString(data.(string))
	case reflect.Float64:
		return decimal.NewFromFloat(data.(float64)), nil
	case reflect.Int, reflect.Int64:
		return decimal.New(reflect.ValueOf(data).Int(), 0), nil
	default:
		return data, nil
	}
}

// Load reads config from a YAML file. ENGINE_* environment variables
// override venue endpoints the same way the teacher's POLY_* variables
// override wallet/API fields.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		decimalDecodeHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if url := os.Getenv("ENGINE_VENUE_BASE_URL"); url != "" {
		cfg.Execution.Venue.BaseURL = url
	}
	if url := os.Getenv("ENGINE_VENUE_WS_URL"); url != "" {
		cfg.Execution.Venue.WSURL = url
	}

	return &cfg, nil
}

// Validate checks required fields and value ranges, mirroring the
// teacher's Validate but against this engine's schema.
func (c *Config) Validate() error {
	if c.Market.DexType == 0 {
		return fmt.Errorf("market.dex_type is required and must be non-zero")
	}
	switch c.Execution.Mode {
	case "simulated", "production":
	default:
		return fmt.Errorf("execution.mode must be one of: simulated, production")
	}
	if c.Execution.Mode == "production" {
		if c.Execution.Venue.BaseURL == "" {
			return fmt.Errorf("execution.venue.base_url is required in production mode")
		}
		if c.Execution.JournalPath == "" {
			return fmt.Errorf("execution.journal_path is required in production mode")
		}
	}
	switch c.Strategy.Type {
	case "simple_spread", "inventory_based":
	default:
		return fmt.Errorf("strategy.type must be one of: simple_spread, inventory_based")
	}
	if c.Risk.MaxOutstandingOrders <= 0 {
		return fmt.Errorf("risk.max_outstanding_orders must be > 0")
	}
	if c.Risk.MaxDrawdownPct <= 0 || c.Risk.MaxDrawdownPct > 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be in (0, 1]")
	}
	if c.Telemetry.PrometheusPort <= 0 {
		return fmt.Errorf("telemetry.prometheus_port is required")
	}
	return nil
}

// EncodedMarketID returns the engine-wide market identifier per spec §3.
func (c *Config) EncodedMarketID() (core.EncodedMarketID, error) {
	return core.EncodeMarketIDChecked(c.Market.DexType, c.Market.MarketID)
}

// ToRiskLimits materializes the decimal-string risk config into the
// fixed-point risk.Limits the validator actually runs against.
func (c *Config) ToRiskLimits() (risk.Limits, error) {
	maxPosition, err := money.ParseFixed(c.Risk.MaxPosition.String())
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_position: %w", err)
	}
	maxShort, err := money.ParseFixed(c.Risk.MaxShort.String())
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_short: %w", err)
	}
	maxOrderSize, err := money.ParseUnsignedFixed(c.Risk.MaxOrderSize.String())
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_order_size: %w", err)
	}
	minOrderSize, err := money.ParseUnsignedFixed(c.Risk.MinOrderSize.String())
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.min_order_size: %w", err)
	}
	maxDailyLoss, err := money.ParseFixed(c.Risk.MaxDailyLoss.String())
	if err != nil {
		return risk.Limits{}, fmt.Errorf("risk.max_daily_loss: %w", err)
	}
	return risk.Limits{
		MaxPosition:          maxPosition,
		MaxShort:             maxShort,
		MaxOrderSize:         maxOrderSize,
		MinOrderSize:         minOrderSize,
		MaxOutstandingOrders: c.Risk.MaxOutstandingOrders,
		MaxDailyLoss:         maxDailyLoss,
		MaxDrawdownPct:       c.Risk.MaxDrawdownPct,
	}, nil
}

// ToFlashCrashConfig materializes the flash-crash breaker config.
func (c *Config) ToFlashCrashConfig() (breaker.FlashCrashConfig, error) {
	minLiquidity, err := money.ParseUnsignedFixed(c.Breakers.MinLiquidity.String())
	if err != nil {
		return breaker.FlashCrashConfig{}, fmt.Errorf("breakers.min_liquidity: %w", err)
	}
	return breaker.FlashCrashConfig{
		MaxSpreadBps:                c.Breakers.MaxSpreadBps,
		MinLiquidity:                minLiquidity,
		MaxJumpBps:                  c.Breakers.MaxJumpBps,
		ConsecutiveViolationsToTrip: c.Breakers.ConsecutiveViolationsToTrip,
	}, nil
}

// ToStaleConfig materializes the stale-data breaker config.
func (c *Config) ToStaleConfig() breaker.StaleConfig {
	return breaker.StaleConfig{
		MaxAge:        time.Duration(c.Breakers.StaleMaxAgeMs) * time.Millisecond,
		MaxEmptyPolls: c.Breakers.StaleMaxEmptyPolls,
	}
}

// ToSimpleSpread materializes the simple-spread strategy config.
func (c *Config) ToSimpleSpread(maxPosition int64) (strategy.SimpleSpread, error) {
	spreadBps, err := money.ParseUnsignedFixed(c.Strategy.SimpleSpread.SpreadBps.String())
	if err != nil {
		return strategy.SimpleSpread{}, fmt.Errorf("strategy.simple_spread.spread_bps: %w", err)
	}
	minSpreadBps, err := money.ParseUnsignedFixed(c.Strategy.SimpleSpread.MinSpreadBps.String())
	if err != nil {
		return strategy.SimpleSpread{}, fmt.Errorf("strategy.simple_spread.min_spread_bps: %w", err)
	}
	orderSize, err := money.ParseUnsignedFixed(c.Strategy.SimpleSpread.OrderSize.String())
	if err != nil {
		return strategy.SimpleSpread{}, fmt.Errorf("strategy.simple_spread.order_size: %w", err)
	}
	// SimpleSpread works in whole basis points, not fixed-point units.
	return strategy.SimpleSpread{
		SpreadBps:    spreadBps / money.Scale,
		MinSpreadBps: minSpreadBps / money.Scale,
		OrderSize:    orderSize,
		MaxPosition:  maxPosition,
	}, nil
}

// ToInventoryBased materializes the Avellaneda-Stoikov strategy config.
// kappa (order arrival intensity) is not exposed in the YAML schema — it
// is held fixed at 1.0, matching the teacher's own non-configurable K in
// its original StrategyConfig.
func (c *Config) ToInventoryBased(tickSize uint64, maxPosition int64) (strategy.InventoryBased, error) {
	target, err := money.ParseFixed(c.Strategy.InventoryBased.TargetInventory.String())
	if err != nil {
		return strategy.InventoryBased{}, fmt.Errorf("strategy.inventory_based.target_inventory: %w", err)
	}
	orderSize, err := money.ParseUnsignedFixed(c.Strategy.InventoryBased.OrderSize.String())
	if err != nil {
		return strategy.InventoryBased{}, fmt.Errorf("strategy.inventory_based.order_size: %w", err)
	}
	return strategy.NewInventoryBased(
		target,
		c.Strategy.InventoryBased.RiskAversion,
		c.Strategy.InventoryBased.Volatility,
		c.Strategy.InventoryBased.TimeHorizonSecs,
		1.0,
		tickSize,
		orderSize,
		maxPosition,
	)
}
