package engine

// Classify scores how trustworthy an observed efficiency is. Each threshold
// breach appends a machine-readable reason; the level is derived purely from
// the reason count (0 high, 1 medium, 2+ low) so callers can reproduce the
// grading without reimplementing any scoring.
//
// Window thresholds: a distance window of exactly the minimum is already
// flagged small, while an energy window of exactly the minimum still passes.
// The outlier reason fires at and beyond the plausibility band edges; values
// beyond the band never reach the classifier because the calculator discards
// them, so in practice it marks exact-edge observations.
func Classify(miles, energyKWh float64, anchorGapDays int, miPerKWh float64, cfg Config) Confidence {
	var reasons []ReasonCode

	if miles <= cfg.MinDeltaMiles {
		reasons = append(reasons, ReasonSmallDistanceWindow)
	}
	if energyKWh < cfg.MinEnergyKWh {
		reasons = append(reasons, ReasonSmallEnergyWindow)
	}
	if anchorGapDays > cfg.MaxAnchorGapDays {
		reasons = append(reasons, ReasonStaleAnchor)
	}
	if miPerKWh <= cfg.PlausibleMin || miPerKWh >= cfg.PlausibleMax {
		reasons = append(reasons, ReasonOutlier)
	}

	return Confidence{Level: levelForReasons(len(reasons)), Reasons: reasons}
}

func levelForReasons(count int) Level {
	switch {
	case count == 0:
		return LevelHigh
	case count == 1:
		return LevelMedium
	default:
		return LevelLow
	}
}
