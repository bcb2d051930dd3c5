package engine

import "time"

// Source identifies where an efficiency value came from. Callers surface it
// verbatim so a statistical fallback is never mistaken for an observation.
type Source string

const (
	SourceObserved        Source = "observed"
	SourceAggregateHomeAC Source = "aggregate_home_ac"
	SourceAggregateAC     Source = "aggregate_ac"
	SourceVehicleProfile  Source = "vehicle_profile"
	SourceUserDefault     Source = "user_default"
	// SourceNone marks efficiency as genuinely unavailable. Consumers must
	// render a gap, never substitute zero.
	SourceNone Source = "none"
)

// SkipReason explains why no observed efficiency exists for a session.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipBaselineSession     SkipReason = "baseline_session"
	SkipNoOdometer          SkipReason = "odometer_missing"
	SkipNoAnchor            SkipReason = "no_anchor"
	SkipNonPositiveDistance SkipReason = "non_positive_distance"
	SkipNonPositiveEnergy   SkipReason = "non_positive_energy"
	SkipImplausible         SkipReason = "implausible_efficiency"
)

// Efficiency is a mi/kWh value paired with its provenance. The zero value is
// not usable; construct via the resolvers or Unavailable.
type Efficiency struct {
	MiPerKWh float64 `json:"mi_per_kwh"`
	Source   Source  `json:"source"`
}

// Unavailable is the explicit "could not compute" efficiency.
func Unavailable() Efficiency {
	return Efficiency{Source: SourceNone}
}

// Available reports whether the value may be used. Zero-cost charging makes a
// literal zero meaningful elsewhere, so availability is carried out of band.
func (e Efficiency) Available() bool {
	return e.Source != SourceNone && e.Source != ""
}

// Observed reports whether the value came from real odometer readings rather
// than a statistical fallback.
func (e Efficiency) Observed() bool {
	return e.Source == SourceObserved
}

// Observation is an anchor-based efficiency measurement.
type Observation struct {
	AnchorID      int64     `json:"anchor_id"`
	AnchorDate    time.Time `json:"anchor_date"`
	AnchorGapDays int       `json:"anchor_gap_days"`
	Miles         float64   `json:"miles"`
	EnergyKWh     float64   `json:"energy_kwh"`
	MiPerKWh      float64   `json:"mi_per_kwh"`
}

// Level grades how trustworthy an observed efficiency is.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ReasonCode is a machine-readable confidence deduction.
type ReasonCode string

const (
	ReasonSmallDistanceWindow ReasonCode = "small_distance_window"
	ReasonSmallEnergyWindow   ReasonCode = "small_energy_window"
	ReasonStaleAnchor         ReasonCode = "stale_anchor"
	ReasonOutlier             ReasonCode = "outlier"
)

// Confidence is the classifier output: a level derived purely from the reason
// count so the UI and tests can reproduce it exactly.
type Confidence struct {
	Level   Level        `json:"level"`
	Reasons []ReasonCode `json:"reasons"`
}

// PetrolComparison is the ternary outcome against the reference rate.
type PetrolComparison string

const (
	PetrolCheaper PetrolComparison = "cheaper"
	PetrolDearer  PetrolComparison = "dearer"
	PetrolUnknown PetrolComparison = "unknown"
)

// SizeClass buckets a session by battery percent added.
type SizeClass string

const (
	SizeTopUp   SizeClass = "topup"
	SizePartial SizeClass = "partial"
	SizeMajor   SizeClass = "major"
)

// MetricsBundle is the full per-session metric set. It is the single source
// of truth consumed by the per-session view and by every aggregate; no other
// code path derives efficiency.
type MetricsBundle struct {
	SessionID int64     `json:"session_id"`
	Date      time.Time `json:"date"`

	Efficiency  Efficiency   `json:"efficiency"`
	Confidence  *Confidence  `json:"confidence,omitempty"` // observed source only
	Observation *Observation `json:"observation,omitempty"`
	SkipReason  SkipReason   `json:"skip_reason,omitempty"` // why no observation

	TotalCost float64 `json:"total_cost"`
	Free      bool    `json:"free"`

	// MilesGained and CostPerMile are only meaningful when Efficiency is
	// available; both stay zero with the availability carried by Efficiency.
	MilesGained float64 `json:"miles_gained"`
	CostPerMile float64 `json:"cost_per_mile"`

	BatteryPercentAdded int     `json:"battery_percent_added"`
	PercentPerKWh       float64 `json:"percent_per_kwh"`
	AvgPowerKW          float64 `json:"avg_power_kw"`

	PetrolComparison PetrolComparison `json:"petrol_comparison"`
	SizeClass        SizeClass        `json:"size_class,omitempty"` // empty when SoC range not recorded
}

// HasCostPerMile reports whether CostPerMile carries a real figure.
func (b MetricsBundle) HasCostPerMile() bool {
	return b.Efficiency.Available() && b.MilesGained > 0
}

// Qualifying reports whether the bundle may enter energy-weighted averages:
// an observed efficiency whose confidence is not low.
func (b MetricsBundle) Qualifying() bool {
	return b.Efficiency.Observed() && b.Confidence != nil && b.Confidence.Level != LevelLow
}
