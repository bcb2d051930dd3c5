package engine

import (
	"chargelog/backend/services/insights-service/internal/models"
)

// Battery-percent thresholds for the session size class.
const (
	sizeTopUpMaxPercent   = 20
	sizePartialMaxPercent = 50
)

// SessionResult pairs a session with its composed metrics so aggregate views
// can group on raw session fields without a second lookup.
type SessionResult struct {
	Session models.ChargingSession
	Bundle  MetricsBundle
}

// ComposeMetrics derives the complete metric set for one session. window is
// the vehicle's ordered history (or enough of it to cover the anchor horizon
// and the fallback lookback); target itself may or may not appear in it.
//
// Every consumer goes through here. Aggregates never recompute efficiency on
// their own, which keeps the per-session view and the rollups agreeing on
// every number.
func ComposeMetrics(target models.ChargingSession, window []models.ChargingSession, vehicle *models.Vehicle, cfg Config) MetricsBundle {
	bundle := MetricsBundle{
		SessionID:  target.ID,
		Date:       target.Date,
		Efficiency: Unavailable(),
		TotalCost:  target.TotalCost(),
		Free:       target.IsFree(),
	}

	composeBatteryMetrics(&bundle, target)
	composeEfficiency(&bundle, target, window, vehicle, cfg)

	if bundle.Efficiency.Available() {
		bundle.MilesGained = target.EnergyKWh * bundle.Efficiency.MiPerKWh
		if bundle.MilesGained > 0 {
			bundle.CostPerMile = bundle.TotalCost / bundle.MilesGained
		}
	}

	bundle.PetrolComparison = PetrolUnknown
	if bundle.HasCostPerMile() && cfg.PetrolCostPerMile > 0 {
		if bundle.CostPerMile < cfg.PetrolCostPerMile {
			bundle.PetrolComparison = PetrolCheaper
		} else {
			bundle.PetrolComparison = PetrolDearer
		}
	}

	return bundle
}

// composeEfficiency runs the observed path and, when that yields nothing and
// fallback is enabled, the fallback chain. Baseline sessions are excluded
// from inference entirely, fallback included: a seed row describes the odometer
// state at import time, not a drive.
func composeEfficiency(bundle *MetricsBundle, target models.ChargingSession, window []models.ChargingSession, vehicle *models.Vehicle, cfg Config) {
	if target.IsBaseline {
		bundle.SkipReason = SkipBaselineSession
		return
	}

	switch {
	case !target.HasOdometer():
		bundle.SkipReason = SkipNoOdometer
	default:
		anchor := ResolveAnchor(window, target, cfg)
		if anchor == nil {
			bundle.SkipReason = SkipNoAnchor
			break
		}
		obs, skip := ComputeObservation(target, *anchor, cfg)
		if skip != SkipNone {
			bundle.SkipReason = skip
			break
		}
		conf := Classify(obs.Miles, obs.EnergyKWh, obs.AnchorGapDays, obs.MiPerKWh, cfg)
		bundle.Efficiency = Efficiency{MiPerKWh: obs.MiPerKWh, Source: SourceObserved}
		bundle.Observation = &obs
		bundle.Confidence = &conf
		return
	}

	if cfg.FallbackEnabled {
		// asOf is the session's own date so recomputing an old session
		// later yields the same answer.
		bundle.Efficiency = ResolveFallback(window, vehicle, target.Date, cfg)
	}
}

// composeBatteryMetrics fills the SoC-derived fields. The log stores SoC as
// plain percentages with no null marker, so a non-positive delta is treated
// as "range not recorded" rather than classified.
func composeBatteryMetrics(bundle *MetricsBundle, target models.ChargingSession) {
	delta := target.SocTo - target.SocFrom
	if delta > 0 {
		bundle.BatteryPercentAdded = delta
		if target.EnergyKWh > 0 {
			bundle.PercentPerKWh = float64(delta) / target.EnergyKWh
		}
		switch {
		case delta <= sizeTopUpMaxPercent:
			bundle.SizeClass = SizeTopUp
		case delta <= sizePartialMaxPercent:
			bundle.SizeClass = SizePartial
		default:
			bundle.SizeClass = SizeMajor
		}
	}

	if target.DurationMin > 0 {
		bundle.AvgPowerKW = target.EnergyKWh / (float64(target.DurationMin) / 60.0)
	}
}

// ComposeAll composes every non-baseline session in window, in input order.
// window must be a single vehicle's (date, id)-ordered history; each target
// resolves its anchor and fallback against that same slice, so one store read
// produces an internally consistent set of bundles.
func ComposeAll(window []models.ChargingSession, vehicle *models.Vehicle, cfg Config) []SessionResult {
	results := make([]SessionResult, 0, len(window))
	for i := range window {
		if window[i].IsBaseline {
			continue
		}
		results = append(results, SessionResult{
			Session: window[i],
			Bundle:  ComposeMetrics(window[i], window, vehicle, cfg),
		})
	}
	return results
}
