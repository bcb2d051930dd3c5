package engine

import (
	"strings"
	"time"

	"chargelog/backend/services/insights-service/internal/models"
)

// AggregateWindowSums accumulates valid observations inside a fallback scope.
type AggregateWindowSums struct {
	Miles     float64 `json:"miles"`
	EnergyKWh float64 `json:"energy_kwh"`
	Sessions  int     `json:"sessions"`
}

// Qualifies reports whether enough cumulative data exists to trust the
// aggregate. The minimums stop the resolver from inferring a fleet-wide
// figure out of one short hop.
func (s AggregateWindowSums) Qualifies(cfg Config) bool {
	return s.Miles >= cfg.AggregateMinMiles && s.EnergyKWh >= cfg.AggregateMinEnergyKWh
}

// MiPerKWh returns the cumulative efficiency, zero when no energy summed.
func (s AggregateWindowSums) MiPerKWh() float64 {
	if s.EnergyKWh <= 0 {
		return 0
	}
	return s.Miles / s.EnergyKWh
}

// DynamicAggregateSums sums observed miles and energy for AC sessions inside
// the lookback window ending at asOf, optionally restricted to home-like
// venues. Scope filters apply to the observation target only; the anchor a
// target measures against may be any earlier session in history, which is why
// callers pass the full horizon-padded history rather than a pre-filtered
// slice.
func DynamicAggregateSums(history []models.ChargingSession, asOf time.Time, homeOnly bool, cfg Config) AggregateWindowSums {
	var sums AggregateWindowSums
	cutoff := dateOnly(asOf)

	for i := range history {
		target := history[i]
		if target.IsBaseline || !target.HasOdometer() {
			continue
		}
		if target.ChargeType != models.ChargeTypeAC {
			continue
		}
		gap := daysBetween(target.Date, cutoff)
		if gap < 0 || gap > cfg.AggregateLookbackDays {
			continue
		}
		if homeOnly && !isHomeLike(target) {
			continue
		}

		anchor := ResolveAnchor(history, target, cfg)
		if anchor == nil {
			continue
		}
		obs, skip := ComputeObservation(target, *anchor, cfg)
		if skip != SkipNone {
			continue
		}

		sums.Miles += obs.Miles
		sums.EnergyKWh += obs.EnergyKWh
		sums.Sessions++
	}

	return sums
}

// ResolveFallback resolves an efficiency when no per-session observation
// exists. Strict priority order, first success wins:
//
//  1. dynamic aggregate, AC at home-like venues, lookback window
//  2. dynamic aggregate, AC anywhere
//  3. the vehicle's manually configured profile efficiency
//  4. the user's global default efficiency
//  5. unavailable — callers must surface the gap, never a guessed zero
//
// The aggregate-over-profile ordering mirrors long-standing behavior; see
// DESIGN.md for the open question around it.
func ResolveFallback(history []models.ChargingSession, vehicle *models.Vehicle, asOf time.Time, cfg Config) Efficiency {
	if sums := DynamicAggregateSums(history, asOf, true, cfg); sums.Qualifies(cfg) {
		return Efficiency{MiPerKWh: sums.MiPerKWh(), Source: SourceAggregateHomeAC}
	}
	if sums := DynamicAggregateSums(history, asOf, false, cfg); sums.Qualifies(cfg) {
		return Efficiency{MiPerKWh: sums.MiPerKWh(), Source: SourceAggregateAC}
	}
	if vehicle != nil && vehicle.HasProfileEfficiency() {
		return Efficiency{MiPerKWh: vehicle.ProfileMiPerKWh, Source: SourceVehicleProfile}
	}
	if cfg.DefaultMiPerKWh > 0 {
		return Efficiency{MiPerKWh: cfg.DefaultMiPerKWh, Source: SourceUserDefault}
	}
	return Unavailable()
}

// isHomeLike prefers the explicit venue classifier and falls back to a label
// heuristic for sessions recorded before venue tagging existed.
func isHomeLike(s models.ChargingSession) bool {
	switch s.VenueType {
	case models.VenueTypeHome:
		return true
	case models.VenueTypePublic:
		return false
	}
	return strings.Contains(strings.ToLower(s.LocationLabel), "home")
}
