package engine

import (
	"fmt"
	"hash/fnv"

	"chargelog/backend/services/insights-service/internal/models"
)

// Default thresholds. Every value can be overridden per deployment and then
// per user; Normalize falls back to these when an override is malformed.
const (
	DefaultMinDeltaMiles         = 15.0
	DefaultMinEnergyKWh          = 3.0
	DefaultMaxAnchorGapDays      = 10
	DefaultPlausibleMin          = 1.0
	DefaultPlausibleMax          = 7.0
	DefaultAnchorHorizonDays     = 30
	DefaultAggregateLookbackDays = 90
	DefaultAggregateMinMiles     = 50.0
	DefaultAggregateMinEnergyKWh = 20.0
	DefaultPetrolCostPerMile     = 0.15
)

// Config carries every threshold the engine consults. It is passed explicitly
// into each entry point so concurrent computations for different users cannot
// observe each other's settings.
type Config struct {
	// Observation window thresholds feeding the confidence classifier.
	MinDeltaMiles float64
	MinEnergyKWh  float64
	// MaxAnchorGapDays flags observations whose anchor is older than this.
	MaxAnchorGapDays int
	// Plausibility band for accepted efficiency values, inclusive.
	PlausibleMin float64
	PlausibleMax float64
	// AnchorHorizonDays bounds how far back anchor resolution may look.
	AnchorHorizonDays int
	// Dynamic aggregate scoping for the fallback resolver.
	AggregateLookbackDays int
	AggregateMinMiles     float64
	AggregateMinEnergyKWh float64
	// FallbackEnabled gates statistical fallback when no observation exists.
	FallbackEnabled bool
	// DefaultMiPerKWh is the user's global default efficiency, 0 when unset.
	DefaultMiPerKWh float64
	// PetrolCostPerMile is the external reference rate for the comparison
	// ternary and the estimated-saving figure.
	PetrolCostPerMile float64
}

// DefaultConfig returns the documented defaults with fallback disabled.
func DefaultConfig() Config {
	return Config{
		MinDeltaMiles:         DefaultMinDeltaMiles,
		MinEnergyKWh:          DefaultMinEnergyKWh,
		MaxAnchorGapDays:      DefaultMaxAnchorGapDays,
		PlausibleMin:          DefaultPlausibleMin,
		PlausibleMax:          DefaultPlausibleMax,
		AnchorHorizonDays:     DefaultAnchorHorizonDays,
		AggregateLookbackDays: DefaultAggregateLookbackDays,
		AggregateMinMiles:     DefaultAggregateMinMiles,
		AggregateMinEnergyKWh: DefaultAggregateMinEnergyKWh,
		FallbackEnabled:       false,
		DefaultMiPerKWh:       0,
		PetrolCostPerMile:     DefaultPetrolCostPerMile,
	}
}

// Normalize replaces malformed fields with their documented defaults. It is
// applied once at config resolution time so a bad value never fails a whole
// computation and never fires per session.
func (c Config) Normalize() Config {
	if c.MinDeltaMiles < 0 {
		c.MinDeltaMiles = DefaultMinDeltaMiles
	}
	if c.MinEnergyKWh < 0 {
		c.MinEnergyKWh = DefaultMinEnergyKWh
	}
	if c.MaxAnchorGapDays <= 0 {
		c.MaxAnchorGapDays = DefaultMaxAnchorGapDays
	}
	if c.PlausibleMin <= 0 {
		c.PlausibleMin = DefaultPlausibleMin
	}
	if c.PlausibleMax <= c.PlausibleMin {
		c.PlausibleMax = c.PlausibleMin + (DefaultPlausibleMax - DefaultPlausibleMin)
	}
	if c.AnchorHorizonDays <= 0 {
		c.AnchorHorizonDays = DefaultAnchorHorizonDays
	}
	if c.AggregateLookbackDays <= 0 {
		c.AggregateLookbackDays = DefaultAggregateLookbackDays
	}
	if c.AggregateMinMiles <= 0 {
		c.AggregateMinMiles = DefaultAggregateMinMiles
	}
	if c.AggregateMinEnergyKWh <= 0 {
		c.AggregateMinEnergyKWh = DefaultAggregateMinEnergyKWh
	}
	if c.DefaultMiPerKWh < 0 {
		c.DefaultMiPerKWh = 0
	}
	if c.PetrolCostPerMile < 0 {
		c.PetrolCostPerMile = DefaultPetrolCostPerMile
	}
	return c
}

// ForUser layers a user's settings over the base config. A nil settings row
// (user never saved preferences) keeps the base values. The result is
// normalized and safe to use directly.
func (c Config) ForUser(settings *models.UserSettings) Config {
	if settings == nil {
		return c.Normalize()
	}

	c.FallbackEnabled = settings.FallbackEnabled
	if settings.DefaultMiPerKWh > 0 {
		c.DefaultMiPerKWh = settings.DefaultMiPerKWh
	}
	if settings.PetrolCostPerMile > 0 {
		c.PetrolCostPerMile = settings.PetrolCostPerMile
	}

	if settings.MinDeltaMiles != nil {
		c.MinDeltaMiles = *settings.MinDeltaMiles
	}
	if settings.MinEnergyKWh != nil {
		c.MinEnergyKWh = *settings.MinEnergyKWh
	}
	if settings.MaxAnchorGapDays != nil {
		c.MaxAnchorGapDays = *settings.MaxAnchorGapDays
	}
	if settings.PlausibleMin != nil {
		c.PlausibleMin = *settings.PlausibleMin
	}
	if settings.PlausibleMax != nil {
		c.PlausibleMax = *settings.PlausibleMax
	}
	if settings.AnchorHorizonDays != nil {
		c.AnchorHorizonDays = *settings.AnchorHorizonDays
	}
	if settings.AggregateLookbackDays != nil {
		c.AggregateLookbackDays = *settings.AggregateLookbackDays
	}
	if settings.AggregateMinMiles != nil {
		c.AggregateMinMiles = *settings.AggregateMinMiles
	}
	if settings.AggregateMinEnergyKWh != nil {
		c.AggregateMinEnergyKWh = *settings.AggregateMinEnergyKWh
	}

	return c.Normalize()
}

// Hash fingerprints the config. Cached snapshots store it so a snapshot
// computed under different thresholds is never served.
func (c Config) Hash() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%g|%g|%d|%g|%g|%d|%d|%g|%g|%t|%g|%g",
		c.MinDeltaMiles,
		c.MinEnergyKWh,
		c.MaxAnchorGapDays,
		c.PlausibleMin,
		c.PlausibleMax,
		c.AnchorHorizonDays,
		c.AggregateLookbackDays,
		c.AggregateMinMiles,
		c.AggregateMinEnergyKWh,
		c.FallbackEnabled,
		c.DefaultMiPerKWh,
		c.PetrolCostPerMile,
	)
	return fmt.Sprintf("%016x", h.Sum64())
}
