package service

import (
	"context"
	"sort"

	"chargelog/backend/services/insights-service/internal/engine"
	"chargelog/backend/services/insights-service/internal/models"
)

// vehicleData is one vehicle's history with its composed bundles, the unit
// every rollup is built from.
type vehicleData struct {
	vehicleID int64
	window    []models.ChargingSession
	results   []engine.SessionResult
}

// WeightedEfficiency returns the energy-weighted lifetime efficiency for one
// vehicle, or across all the user's vehicles when vehicleID is zero.
func (s *InsightsService) WeightedEfficiency(ctx context.Context, userID, vehicleID int64) (engine.WeightedEfficiency, error) {
	data, cfg, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return engine.WeightedEfficiency{}, err
	}
	return mergeWeighted(data, cfg), nil
}

// LifetimeTotals returns lifetime energy, cost, derived distance and the
// petrol comparison for the scope.
func (s *InsightsService) LifetimeTotals(ctx context.Context, userID, vehicleID int64) (engine.LifetimeTotals, error) {
	data, cfg, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return engine.LifetimeTotals{}, err
	}
	if len(data) == 1 {
		return engine.ComputeLifetimeTotals(data[0].window, data[0].results, cfg), nil
	}

	totals := engine.LifetimeTotals{
		Weighted:          mergeWeighted(data, cfg),
		PetrolRatePerMile: cfg.PetrolCostPerMile,
	}
	for _, d := range data {
		for _, r := range d.results {
			totals.Sessions++
			if r.Session.IsFree() {
				totals.FreeSessions++
			}
			totals.EnergyKWh += r.Session.EnergyKWh
			totals.TotalCost += r.Session.TotalCost()
		}
	}
	if totals.HasMiles() {
		totals.TotalMiles = totals.Weighted.Efficiency.MiPerKWh * totals.EnergyKWh
	}
	if totals.HasPetrolSaving() {
		totals.PetrolSaving = totals.TotalMiles*totals.PetrolRatePerMile - totals.TotalCost
	}
	return totals, nil
}

// CostExtremes returns the cheapest and dearest paid sessions by cost per
// mile within the scope.
func (s *InsightsService) CostExtremes(ctx context.Context, userID, vehicleID int64) (engine.CostExtremes, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return engine.CostExtremes{}, err
	}
	return engine.ComputeCostExtremes(combinedResults(data)), nil
}

// Seasonal returns efficiency grouped into fixed ambient-temperature bins.
func (s *InsightsService) Seasonal(ctx context.Context, userID, vehicleID int64) ([]engine.SeasonalBucket, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeSeasonal(combinedResults(data)), nil
}

// Leaderboard returns per-location median costs.
func (s *InsightsService) Leaderboard(ctx context.Context, userID, vehicleID int64) ([]engine.LeaderboardEntry, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeLeaderboard(combinedResults(data)), nil
}

// SweetSpot returns efficiency grouped by starting state of charge.
func (s *InsightsService) SweetSpot(ctx context.Context, userID, vehicleID int64) ([]engine.SweetSpotBucket, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeSweetSpot(combinedResults(data)), nil
}

// MonthlySummaries returns per-calendar-month rollups in chronological order.
func (s *InsightsService) MonthlySummaries(ctx context.Context, userID, vehicleID int64) ([]engine.MonthlySummary, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeMonthlySummaries(combinedResults(data)), nil
}

// ChargeMix returns the AC/DC split for the scope.
func (s *InsightsService) ChargeMix(ctx context.Context, userID, vehicleID int64) ([]engine.ChargeMixEntry, error) {
	data, _, err := s.loadWindows(ctx, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return engine.ComputeChargeMix(combinedResults(data)), nil
}

// loadWindows reads and composes every vehicle in scope, one full-history
// read per vehicle so each vehicle's bundles are internally consistent.
func (s *InsightsService) loadWindows(ctx context.Context, userID, vehicleID int64) ([]vehicleData, engine.Config, error) {
	cfg, err := s.configFor(ctx, userID)
	if err != nil {
		return nil, engine.Config{}, err
	}

	var scoped []*models.Vehicle
	ids := []int64{vehicleID}
	if vehicleID == 0 {
		vehicles, err := s.vehicles.ListByUser(ctx, userID)
		if err != nil {
			return nil, engine.Config{}, err
		}
		ids = ids[:0]
		for i := range vehicles {
			ids = append(ids, vehicles[i].ID)
			scoped = append(scoped, &vehicles[i])
		}
	} else {
		vehicle, err := s.vehicleFor(ctx, userID, vehicleID)
		if err != nil {
			return nil, engine.Config{}, err
		}
		scoped = append(scoped, vehicle)
	}

	data := make([]vehicleData, 0, len(ids))
	for i, id := range ids {
		window, err := s.sessions.ListByVehicle(ctx, userID, id)
		if err != nil {
			return nil, engine.Config{}, err
		}
		data = append(data, vehicleData{
			vehicleID: id,
			window:    window,
			results:   engine.ComposeAll(window, scoped[i], cfg),
		})
	}
	return data, cfg, nil
}

// mergeWeighted combines per-vehicle weighted efficiencies. Qualifying sums
// add directly; when nothing qualifies anywhere, the dynamic-aggregate chain
// runs per vehicle and only individually qualifying sums are blended, so one
// vehicle's thin data cannot water down another's.
func mergeWeighted(data []vehicleData, cfg engine.Config) engine.WeightedEfficiency {
	if len(data) == 1 {
		return engine.ComputeWeightedEfficiency(data[0].window, data[0].results, cfg)
	}

	merged := engine.WeightedEfficiency{Efficiency: engine.Unavailable()}
	for _, d := range data {
		w := engine.ComputeWeightedEfficiency(d.window, d.results, cfg)
		merged.Qualifying += w.Qualifying
		merged.Excluded += w.Excluded
		merged.Miles += w.Miles
		merged.EnergyKWh += w.EnergyKWh
	}
	if merged.EnergyKWh > 0 {
		merged.Efficiency = engine.Efficiency{MiPerKWh: merged.Miles / merged.EnergyKWh, Source: engine.SourceObserved}
		return merged
	}

	for _, homeOnly := range []bool{true, false} {
		var miles, energy float64
		for _, d := range data {
			if len(d.window) == 0 {
				continue
			}
			asOf := d.window[len(d.window)-1].Date
			sums := engine.DynamicAggregateSums(d.window, asOf, homeOnly, cfg)
			if sums.Qualifies(cfg) {
				miles += sums.Miles
				energy += sums.EnergyKWh
			}
		}
		if energy > 0 {
			source := engine.SourceAggregateAC
			if homeOnly {
				source = engine.SourceAggregateHomeAC
			}
			merged.Efficiency = engine.Efficiency{MiPerKWh: miles / energy, Source: source}
			return merged
		}
	}
	return merged
}

// combinedResults flattens per-vehicle results back into canonical
// (date, id) order so tie-breaks behave the same in every scope.
func combinedResults(data []vehicleData) []engine.SessionResult {
	if len(data) == 1 {
		return data[0].results
	}
	var results []engine.SessionResult
	for _, d := range data {
		results = append(results, d.results...)
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].Session, results[j].Session
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.ID < b.ID
	})
	return results
}
