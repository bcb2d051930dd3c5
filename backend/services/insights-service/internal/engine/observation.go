package engine

import "chargelog/backend/services/insights-service/internal/models"

// ComputeObservation derives an observed efficiency from the target session
// and its anchor. The energy window is the target session's delivered energy
// only; summing energy across intermediate sessions double counts when
// several charges happen between odometer readings.
//
// A skip reason instead of an observation is a data gap, not an error:
// backwards or stationary odometers, zero-energy rows and implausible values
// are all discarded rather than clamped or guessed at.
func ComputeObservation(target, anchor models.ChargingSession, cfg Config) (Observation, SkipReason) {
	miles := target.OdometerMiles - anchor.OdometerMiles
	if miles <= 0 {
		return Observation{}, SkipNonPositiveDistance
	}

	energy := target.EnergyKWh
	if energy <= 0 {
		return Observation{}, SkipNonPositiveEnergy
	}

	miPerKWh := miles / energy
	if miPerKWh < cfg.PlausibleMin || miPerKWh > cfg.PlausibleMax {
		return Observation{}, SkipImplausible
	}

	return Observation{
		AnchorID:      anchor.ID,
		AnchorDate:    dateOnly(anchor.Date),
		AnchorGapDays: daysBetween(anchor.Date, target.Date),
		Miles:         miles,
		EnergyKWh:     energy,
		MiPerKWh:      miPerKWh,
	}, SkipNone
}
