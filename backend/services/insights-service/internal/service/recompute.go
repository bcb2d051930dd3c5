package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chargelog/backend/services/insights-service/internal/engine"
	redisstore "chargelog/backend/services/insights-service/internal/redis"
)

// rebuildConcurrency bounds parallel vehicle rebuilds in whole-store passes.
const rebuildConcurrency = 4

// RebuildReport summarizes a bulk snapshot rebuild.
type RebuildReport struct {
	Vehicles  int `json:"vehicles"`
	Sessions  int `json:"sessions"`
	Snapshots int `json:"snapshots"`
	Failed    int `json:"failed"`
}

func (r *RebuildReport) add(other RebuildReport) {
	r.Vehicles += other.Vehicles
	r.Sessions += other.Sessions
	r.Snapshots += other.Snapshots
	r.Failed += other.Failed
}

// RecomputeVehicle rebuilds every snapshot for one vehicle from a single
// history read. Individual snapshot write failures are counted and logged,
// not fatal: a rerun overwrites whatever did land.
func (s *InsightsService) RecomputeVehicle(ctx context.Context, userID, vehicleID int64) (RebuildReport, error) {
	if s.cache == nil {
		return RebuildReport{}, ErrCacheDisabled
	}

	cfg, err := s.configFor(ctx, userID)
	if err != nil {
		return RebuildReport{}, err
	}
	vehicle, err := s.vehicleFor(ctx, userID, vehicleID)
	if err != nil {
		return RebuildReport{}, err
	}
	window, err := s.sessions.ListByVehicle(ctx, userID, vehicleID)
	if err != nil {
		return RebuildReport{}, err
	}

	results := engine.ComposeAll(window, vehicle, cfg)
	report := RebuildReport{Vehicles: 1, Sessions: len(results)}
	hash := cfg.Hash()
	computedAt := time.Now().UTC()

	for _, r := range results {
		err := s.cache.Save(ctx, redisstore.MetricsSnapshot{
			SessionID:  r.Session.ID,
			UserID:     userID,
			VehicleID:  vehicleID,
			ConfigHash: hash,
			ComputedAt: computedAt,
			Bundle:     r.Bundle,
		})
		if err != nil {
			report.Failed++
			s.logger.Warn("snapshot write failed",
				zap.Int64("session_id", r.Session.ID),
				zap.Error(err))
			continue
		}
		report.Snapshots++
	}

	s.logger.Info("vehicle snapshots rebuilt",
		zap.Int64("user_id", userID),
		zap.Int64("vehicle_id", vehicleID),
		zap.Int("sessions", report.Sessions),
		zap.Int("failed", report.Failed))
	return report, nil
}

// RecomputeUser rebuilds snapshots for every vehicle the user owns, fanning
// out one goroutine per vehicle.
func (s *InsightsService) RecomputeUser(ctx context.Context, userID int64) (RebuildReport, error) {
	if s.cache == nil {
		return RebuildReport{}, ErrCacheDisabled
	}

	vehicles, err := s.vehicles.ListByUser(ctx, userID)
	if err != nil {
		return RebuildReport{}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	reports := make([]RebuildReport, len(vehicles))
	for i, vehicle := range vehicles {
		i, vehicle := i, vehicle
		g.Go(func() error {
			report, err := s.RecomputeVehicle(ctx, userID, vehicle.ID)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RebuildReport{}, err
	}

	var total RebuildReport
	for _, report := range reports {
		total.add(report)
	}
	return total, nil
}

// RecomputeAll rebuilds snapshots for every (user, vehicle) pair present in
// the session store, bounded-parallel.
func (s *InsightsService) RecomputeAll(ctx context.Context) (RebuildReport, error) {
	if s.cache == nil {
		return RebuildReport{}, ErrCacheDisabled
	}

	pairs, err := s.sessions.DistinctVehiclePairs(ctx)
	if err != nil {
		return RebuildReport{}, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	reports := make([]RebuildReport, len(pairs))
	for i, pair := range pairs {
		i, pair := i, pair
		g.Go(func() error {
			report, err := s.RecomputeVehicle(ctx, pair.UserID, pair.VehicleID)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RebuildReport{}, err
	}

	var total RebuildReport
	for _, report := range reports {
		total.add(report)
	}
	return total, nil
}
