package models

import "time"

// Vehicle holds the per-vehicle profile consulted by the fallback resolver.
type Vehicle struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	ProfileMiPerKWh float64   `db:"profile_mi_per_kwh" json:"profile_mi_per_kwh"`
	BatteryKWh      float64   `db:"battery_kwh" json:"battery_kwh"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// HasProfileEfficiency reports whether a manual efficiency was configured.
func (v Vehicle) HasProfileEfficiency() bool {
	return v.ProfileMiPerKWh > 0
}
