package models

// UserSettings carries a user's engine preferences. Pointer fields are
// per-user threshold overrides; nil inherits the service default.
type UserSettings struct {
	UserID            int64   `db:"user_id" json:"user_id"`
	FallbackEnabled   bool    `db:"fallback_enabled" json:"fallback_enabled"`
	DefaultMiPerKWh   float64 `db:"default_mi_per_kwh" json:"default_mi_per_kwh"`
	PetrolCostPerMile float64 `db:"petrol_cost_per_mile" json:"petrol_cost_per_mile"`

	MinDeltaMiles         *float64 `db:"min_delta_miles" json:"min_delta_miles,omitempty"`
	MinEnergyKWh          *float64 `db:"min_energy_kwh" json:"min_energy_kwh,omitempty"`
	MaxAnchorGapDays      *int     `db:"max_anchor_gap_days" json:"max_anchor_gap_days,omitempty"`
	PlausibleMin          *float64 `db:"plausible_min" json:"plausible_min,omitempty"`
	PlausibleMax          *float64 `db:"plausible_max" json:"plausible_max,omitempty"`
	AnchorHorizonDays     *int     `db:"anchor_horizon_days" json:"anchor_horizon_days,omitempty"`
	AggregateLookbackDays *int     `db:"aggregate_lookback_days" json:"aggregate_lookback_days,omitempty"`
	AggregateMinMiles     *float64 `db:"aggregate_min_miles" json:"aggregate_min_miles,omitempty"`
	AggregateMinEnergyKWh *float64 `db:"aggregate_min_energy_kwh" json:"aggregate_min_energy_kwh,omitempty"`
}
