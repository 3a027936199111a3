package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the prefcore decision core.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Alpaca    Alpaca          `yaml:"alpaca"`
	Logging   Logging         `yaml:"logging"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Windows   WindowConfig    `yaml:"windows"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Guard     GuardConfig     `yaml:"guard"`
	Gate      GateConfig      `yaml:"gate"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
	Execution ExecutionConfig `yaml:"execution"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`    // root for parquet print history
	SQLitePath string `yaml:"sqlite_path"` // reference-record database
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PipelineConfig controls the batch decision cycle.
type PipelineConfig struct {
	CycleInterval   time.Duration `yaml:"cycle_interval"`    // full batch recompute cadence
	StaleAfter      time.Duration `yaml:"stale_after"`       // live data older than this blocks the symbol
	MaxSpread       float64       `yaml:"max_spread"`        // absolute spread ceiling for tradeability
	CompositeWeight float64       `yaml:"composite_weight"`  // K in composite = fundamental − K×delta
	RankAggregation string        `yaml:"rank_aggregation"`  // mean | min | max
}

// WindowConfig controls the rolling-window engines.
type WindowConfig struct {
	ConcentrationMinutes []int         `yaml:"concentration_minutes"` // horizons, e.g. [10, 30, 60, 240]
	VWAPDays             []int         `yaml:"vwap_days"`             // day horizons, e.g. [3, 5, 10]
	MinLotSize           int64         `yaml:"min_lot_size"`          // minimum qualifying print size
	ComputeTick          time.Duration `yaml:"compute_tick"`          // window recompute cadence
	RingCapacity         int           `yaml:"ring_capacity"`         // per-symbol print ring size
	OutlierMultiplier    float64       `yaml:"outlier_multiplier"`    // VWAP excludes size > avgVol × this
}

// OverlayConfig bounds the dirty-queue drain that feeds the derived-score
// pass for changed symbols.
type OverlayConfig struct {
	MinInterval   time.Duration `yaml:"min_interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxQueueDepth int           `yaml:"max_queue_depth"`
}

// ScoringConfig holds derived-score constants.
type ScoringConfig struct {
	FrontOffset    float64 `yaml:"front_offset"`     // last ± this for front variants
	SpreadFraction float64 `yaml:"spread_fraction"`  // bid/ask + spread × this for passive variants
	InnerFraction  float64 `yaml:"inner_fraction"`   // spread fraction for the inner variants
}

// GuardConfig holds the position-guard limits.
type GuardConfig struct {
	ExposureDivisor  int64         `yaml:"exposure_divisor"`   // MAXALW = avg volume / this
	DailyAddCap      int64         `yaml:"daily_add_cap"`      // max net adds per day
	ShortPaceCap     int64         `yaml:"short_pace_cap"`     // max net change per short horizon
	ShortPaceHorizon time.Duration `yaml:"short_pace_horizon"` // e.g. 3h
	OnVenueError     string        `yaml:"on_venue_error"`     // skip | block
}

// GateConfig holds the order-gate floors.
type GateConfig struct {
	SpreadFloor        float64 `yaml:"spread_floor"`         // minimum spread to bother quoting into
	ConcentrationFloor float64 `yaml:"concentration_floor"`  // minimum concentration percent
	MinQualifyingCount int     `yaml:"min_qualifying_count"` // minimum prints behind the signal
}

// BootstrapConfig bounds the previous-close bootstrap path.
type BootstrapConfig struct {
	RequestsPerMin int           `yaml:"requests_per_min"`
	FailureTTL     time.Duration `yaml:"failure_ttl"` // suppress retries for failed symbols
}

// ExecutionConfig selects the execution mode.
type ExecutionConfig struct {
	Mode string `yaml:"mode"` // preview | live
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with working defaults so a minimal
// config file is usable.
func applyDefaults(cfg *Config) {
	if cfg.Pipeline.CycleInterval == 0 {
		cfg.Pipeline.CycleInterval = 5 * time.Second
	}
	if cfg.Pipeline.StaleAfter == 0 {
		cfg.Pipeline.StaleAfter = 5 * time.Minute
	}
	if cfg.Pipeline.MaxSpread == 0 {
		cfg.Pipeline.MaxSpread = 0.60
	}
	if cfg.Pipeline.CompositeWeight == 0 {
		cfg.Pipeline.CompositeWeight = 800
	}
	if cfg.Pipeline.RankAggregation == "" {
		cfg.Pipeline.RankAggregation = "mean"
	}

	if len(cfg.Windows.ConcentrationMinutes) == 0 {
		cfg.Windows.ConcentrationMinutes = []int{10, 30, 60, 240}
	}
	if len(cfg.Windows.VWAPDays) == 0 {
		cfg.Windows.VWAPDays = []int{3, 5, 10}
	}
	if cfg.Windows.MinLotSize == 0 {
		cfg.Windows.MinLotSize = 100
	}
	if cfg.Windows.ComputeTick == 0 {
		cfg.Windows.ComputeTick = 30 * time.Second
	}
	if cfg.Windows.RingCapacity == 0 {
		cfg.Windows.RingCapacity = 2048
	}
	if cfg.Windows.OutlierMultiplier == 0 {
		cfg.Windows.OutlierMultiplier = 0.5
	}

	if cfg.Overlay.MinInterval == 0 {
		cfg.Overlay.MinInterval = 250 * time.Millisecond
	}
	if cfg.Overlay.BatchSize == 0 {
		cfg.Overlay.BatchSize = 64
	}
	if cfg.Overlay.MaxQueueDepth == 0 {
		cfg.Overlay.MaxQueueDepth = 4096
	}

	if cfg.Scoring.FrontOffset == 0 {
		cfg.Scoring.FrontOffset = 0.01
	}
	if cfg.Scoring.SpreadFraction == 0 {
		cfg.Scoring.SpreadFraction = 0.15
	}
	if cfg.Scoring.InnerFraction == 0 {
		cfg.Scoring.InnerFraction = 0.10
	}

	if cfg.Guard.ExposureDivisor == 0 {
		cfg.Guard.ExposureDivisor = 10
	}
	if cfg.Guard.DailyAddCap == 0 {
		cfg.Guard.DailyAddCap = 1000
	}
	if cfg.Guard.ShortPaceCap == 0 {
		cfg.Guard.ShortPaceCap = 500
	}
	if cfg.Guard.ShortPaceHorizon == 0 {
		cfg.Guard.ShortPaceHorizon = 3 * time.Hour
	}
	if cfg.Guard.OnVenueError == "" {
		cfg.Guard.OnVenueError = "skip"
	}

	if cfg.Gate.SpreadFloor == 0 {
		cfg.Gate.SpreadFloor = 0.03
	}
	if cfg.Gate.ConcentrationFloor == 0 {
		cfg.Gate.ConcentrationFloor = 60
	}
	if cfg.Gate.MinQualifyingCount == 0 {
		cfg.Gate.MinQualifyingCount = 3
	}

	if cfg.Bootstrap.RequestsPerMin == 0 {
		cfg.Bootstrap.RequestsPerMin = 120
	}
	if cfg.Bootstrap.FailureTTL == 0 {
		cfg.Bootstrap.FailureTTL = 10 * time.Minute
	}

	if cfg.Execution.Mode == "" {
		cfg.Execution.Mode = "preview"
	}
}

// validate rejects configurations that would silently misbehave.
func validate(cfg *Config) error {
	switch cfg.Guard.OnVenueError {
	case "skip", "block":
	default:
		return fmt.Errorf("guard.on_venue_error: unknown policy %q", cfg.Guard.OnVenueError)
	}
	switch cfg.Execution.Mode {
	case "preview", "live":
	default:
		return fmt.Errorf("execution.mode: unknown mode %q", cfg.Execution.Mode)
	}
	switch cfg.Pipeline.RankAggregation {
	case "mean", "min", "max":
	default:
		return fmt.Errorf("pipeline.rank_aggregation: unknown strategy %q", cfg.Pipeline.RankAggregation)
	}
	return nil
}
