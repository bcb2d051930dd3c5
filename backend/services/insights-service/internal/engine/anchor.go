package engine

import (
	"time"

	"chargelog/backend/services/insights-service/internal/models"
)

// ResolveAnchor finds the most recent session usable as the odometer baseline
// for target: same user and vehicle, odometer recorded, strictly before the
// target in (date, id) order, and no older than the anchor horizon. Baseline
// seed sessions are valid anchors; they exist to start the odometer timeline.
// Returns nil when no anchor exists, which is a normal outcome for the first
// session of a vehicle or after a long gap.
func ResolveAnchor(window []models.ChargingSession, target models.ChargingSession, cfg Config) *models.ChargingSession {
	var anchor *models.ChargingSession
	for i := range window {
		candidate := window[i]
		if candidate.UserID != target.UserID || candidate.VehicleID != target.VehicleID {
			continue
		}
		if !candidate.HasOdometer() {
			continue
		}
		if !beforeByDateID(candidate, target) {
			continue
		}
		if daysBetween(candidate.Date, target.Date) > cfg.AnchorHorizonDays {
			continue
		}
		if anchor == nil || beforeByDateID(*anchor, candidate) {
			c := candidate
			anchor = &c
		}
	}
	return anchor
}

// beforeByDateID reports whether a precedes b in the canonical session order:
// calendar date first, monotonic id as the tie-breaker. Insertion time is
// deliberately ignored.
func beforeByDateID(a, b models.ChargingSession) bool {
	ad, bd := dateOnly(a.Date), dateOnly(b.Date)
	if ad.Before(bd) {
		return true
	}
	if ad.After(bd) {
		return false
	}
	return a.ID < b.ID
}

// dateOnly truncates to a UTC calendar date. Session dates carry no
// time-of-day meaning.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)) / (24 * time.Hour))
}
