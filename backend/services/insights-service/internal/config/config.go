package config

import (
	"errors"
	"strings"
	"time"

	libconfig "chargelog/backend/libs/config"
	"chargelog/backend/services/insights-service/internal/engine"
)

// Config defines insights service configuration.
type Config struct {
	Database struct {
		DSN string `yaml:"dsn" env:"INSIGHTS_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"INSIGHTS_REDIS_ADDR"`
		Password string `yaml:"password" env:"INSIGHTS_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"INSIGHTS_REDIS_DB"`
		TTL      int    `yaml:"ttlSeconds" env:"INSIGHTS_REDIS_TTL"`
	} `yaml:"redis"`
	Engine struct {
		MinDeltaMiles         float64 `yaml:"minDeltaMiles" env:"INSIGHTS_MIN_DELTA_MILES"`
		MinEnergyKWh          float64 `yaml:"minEnergyKwh" env:"INSIGHTS_MIN_ENERGY_KWH"`
		MaxAnchorGapDays      int     `yaml:"maxAnchorGapDays" env:"INSIGHTS_MAX_ANCHOR_GAP_DAYS"`
		PlausibleMin          float64 `yaml:"plausibleMin" env:"INSIGHTS_PLAUSIBLE_MIN"`
		PlausibleMax          float64 `yaml:"plausibleMax" env:"INSIGHTS_PLAUSIBLE_MAX"`
		AnchorHorizonDays     int     `yaml:"anchorHorizonDays" env:"INSIGHTS_ANCHOR_HORIZON_DAYS"`
		AggregateLookbackDays int     `yaml:"aggregateLookbackDays" env:"INSIGHTS_AGGREGATE_LOOKBACK_DAYS"`
		AggregateMinMiles     float64 `yaml:"aggregateMinMiles" env:"INSIGHTS_AGGREGATE_MIN_MILES"`
		AggregateMinEnergyKWh float64 `yaml:"aggregateMinEnergyKwh" env:"INSIGHTS_AGGREGATE_MIN_ENERGY_KWH"`
		FallbackEnabled       bool    `yaml:"fallbackEnabled" env:"INSIGHTS_FALLBACK_ENABLED"`
		DefaultMiPerKWh       float64 `yaml:"defaultMiPerKwh" env:"INSIGHTS_DEFAULT_MI_PER_KWH"`
		PetrolCostPerMile     float64 `yaml:"petrolCostPerMile" env:"INSIGHTS_PETROL_COST_PER_MILE"`
	} `yaml:"engine"`
	Recompute struct {
		UserID    int64 `yaml:"userId" env:"INSIGHTS_RECOMPUTE_USER_ID"`
		VehicleID int64 `yaml:"vehicleId" env:"INSIGHTS_RECOMPUTE_VEHICLE_ID"`
		// Timeout is env-only: the yaml decoder cannot parse duration strings.
		Timeout time.Duration `yaml:"-" env:"INSIGHTS_RECOMPUTE_TIMEOUT"`
	} `yaml:"recompute"`
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{
		Redis: struct {
			Addr     string `yaml:"addr" env:"INSIGHTS_REDIS_ADDR"`
			Password string `yaml:"password" env:"INSIGHTS_REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"INSIGHTS_REDIS_DB"`
			TTL      int    `yaml:"ttlSeconds" env:"INSIGHTS_REDIS_TTL"`
		}{
			TTL: 86400,
		},
		Engine: struct {
			MinDeltaMiles         float64 `yaml:"minDeltaMiles" env:"INSIGHTS_MIN_DELTA_MILES"`
			MinEnergyKWh          float64 `yaml:"minEnergyKwh" env:"INSIGHTS_MIN_ENERGY_KWH"`
			MaxAnchorGapDays      int     `yaml:"maxAnchorGapDays" env:"INSIGHTS_MAX_ANCHOR_GAP_DAYS"`
			PlausibleMin          float64 `yaml:"plausibleMin" env:"INSIGHTS_PLAUSIBLE_MIN"`
			PlausibleMax          float64 `yaml:"plausibleMax" env:"INSIGHTS_PLAUSIBLE_MAX"`
			AnchorHorizonDays     int     `yaml:"anchorHorizonDays" env:"INSIGHTS_ANCHOR_HORIZON_DAYS"`
			AggregateLookbackDays int     `yaml:"aggregateLookbackDays" env:"INSIGHTS_AGGREGATE_LOOKBACK_DAYS"`
			AggregateMinMiles     float64 `yaml:"aggregateMinMiles" env:"INSIGHTS_AGGREGATE_MIN_MILES"`
			AggregateMinEnergyKWh float64 `yaml:"aggregateMinEnergyKwh" env:"INSIGHTS_AGGREGATE_MIN_ENERGY_KWH"`
			FallbackEnabled       bool    `yaml:"fallbackEnabled" env:"INSIGHTS_FALLBACK_ENABLED"`
			DefaultMiPerKWh       float64 `yaml:"defaultMiPerKwh" env:"INSIGHTS_DEFAULT_MI_PER_KWH"`
			PetrolCostPerMile     float64 `yaml:"petrolCostPerMile" env:"INSIGHTS_PETROL_COST_PER_MILE"`
		}{
			MinDeltaMiles:         engine.DefaultMinDeltaMiles,
			MinEnergyKWh:          engine.DefaultMinEnergyKWh,
			MaxAnchorGapDays:      engine.DefaultMaxAnchorGapDays,
			PlausibleMin:          engine.DefaultPlausibleMin,
			PlausibleMax:          engine.DefaultPlausibleMax,
			AnchorHorizonDays:     engine.DefaultAnchorHorizonDays,
			AggregateLookbackDays: engine.DefaultAggregateLookbackDays,
			AggregateMinMiles:     engine.DefaultAggregateMinMiles,
			AggregateMinEnergyKWh: engine.DefaultAggregateMinEnergyKWh,
			PetrolCostPerMile:     engine.DefaultPetrolCostPerMile,
		},
		Recompute: struct {
			UserID    int64 `yaml:"userId" env:"INSIGHTS_RECOMPUTE_USER_ID"`
			VehicleID int64 `yaml:"vehicleId" env:"INSIGHTS_RECOMPUTE_VEHICLE_ID"`
			// Timeout is env-only: the yaml decoder cannot parse duration strings.
			Timeout time.Duration `yaml:"-" env:"INSIGHTS_RECOMPUTE_TIMEOUT"`
		}{
			Timeout: 5 * time.Minute,
		},
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.Recompute.VehicleID != 0 && cfg.Recompute.UserID == 0 {
		return nil, errors.New("config: recompute vehicle scope requires a user id")
	}
	return cfg, nil
}

// CacheEnabled reports whether a snapshot cache should be wired. Redis is
// optional for this service; without it every request recomputes.
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// SnapshotTTL returns the snapshot ttl as duration.
func (c *Config) SnapshotTTL() time.Duration {
	if c.Redis.TTL <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Redis.TTL) * time.Second
}

// RunTimeout bounds a one-shot recompute pass.
func (c *Config) RunTimeout() time.Duration {
	if c.Recompute.Timeout <= 0 {
		return 5 * time.Minute
	}
	return c.Recompute.Timeout
}

// EngineConfig maps the engine section onto engine thresholds. Normalize
// repairs anything malformed, so a bad deployment value degrades to the
// documented default instead of failing startup.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		MinDeltaMiles:         c.Engine.MinDeltaMiles,
		MinEnergyKWh:          c.Engine.MinEnergyKWh,
		MaxAnchorGapDays:      c.Engine.MaxAnchorGapDays,
		PlausibleMin:          c.Engine.PlausibleMin,
		PlausibleMax:          c.Engine.PlausibleMax,
		AnchorHorizonDays:     c.Engine.AnchorHorizonDays,
		AggregateLookbackDays: c.Engine.AggregateLookbackDays,
		AggregateMinMiles:     c.Engine.AggregateMinMiles,
		AggregateMinEnergyKWh: c.Engine.AggregateMinEnergyKWh,
		FallbackEnabled:       c.Engine.FallbackEnabled,
		DefaultMiPerKWh:       c.Engine.DefaultMiPerKWh,
		PetrolCostPerMile:     c.Engine.PetrolCostPerMile,
	}.Normalize()
}
