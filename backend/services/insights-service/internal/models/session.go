package models

import "time"

// Charge type values.
const (
	ChargeTypeAC = "AC"
	ChargeTypeDC = "DC"
)

// Venue type values. Empty means the user did not classify the venue.
const (
	VenueTypeHome   = "home"
	VenueTypePublic = "public"
)

// ChargingSession is one recorded charging event. The insights core treats
// sessions as immutable input; only the surrounding CRUD layer writes them.
type ChargingSession struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	VehicleID     int64     `db:"vehicle_id" json:"vehicle_id"`
	Date          time.Time `db:"session_date" json:"session_date"`
	OdometerMiles float64   `db:"odometer_miles" json:"odometer_miles"`
	EnergyKWh     float64   `db:"energy_kwh" json:"energy_kwh"`
	SocFrom       int       `db:"soc_from" json:"soc_from"`
	SocTo         int       `db:"soc_to" json:"soc_to"`
	ChargeType    string    `db:"charge_type" json:"charge_type"`
	ChargePowerKW float64   `db:"charge_power_kw" json:"charge_power_kw"`
	DurationMin   int       `db:"duration_min" json:"duration_min"`
	CostPerKWh    float64   `db:"cost_per_kwh" json:"cost_per_kwh"`
	LocationLabel string    `db:"location_label" json:"location_label"`
	Network       string    `db:"network" json:"network"`
	IsBaseline    bool      `db:"is_baseline" json:"is_baseline"`
	AmbientTempC  *float64  `db:"ambient_temp_c" json:"ambient_temp_c,omitempty"`
	VenueType     string    `db:"venue_type" json:"venue_type"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// HasOdometer reports whether an odometer reading was recorded. Zero means
// "unknown / not tracked", never an actual reading.
func (s ChargingSession) HasOdometer() bool {
	return s.OdometerMiles > 0
}

// IsFree reports whether the session cost nothing.
func (s ChargingSession) IsFree() bool {
	return s.CostPerKWh == 0
}

// TotalCost derives the session cost. Cost is never stored independently so
// it cannot drift from energy and unit price.
func (s ChargingSession) TotalCost() float64 {
	return s.EnergyKWh * s.CostPerKWh
}

// VehiclePair identifies one (user, vehicle) computation unit.
type VehiclePair struct {
	UserID    int64 `db:"user_id" json:"user_id"`
	VehicleID int64 `db:"vehicle_id" json:"vehicle_id"`
}
