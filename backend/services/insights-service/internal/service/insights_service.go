package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chargelog/backend/services/insights-service/internal/engine"
	"chargelog/backend/services/insights-service/internal/models"
	redisstore "chargelog/backend/services/insights-service/internal/redis"
	"chargelog/backend/services/insights-service/internal/repository"
)

// ErrCacheDisabled is returned by snapshot rebuilds when no cache is wired.
var ErrCacheDisabled = errors.New("snapshot cache not configured")

// SessionSource provides ordered session reads. All listings come back in
// (session_date, id) ascending order.
type SessionSource interface {
	GetByID(ctx context.Context, id int64) (*models.ChargingSession, error)
	ListByVehicle(ctx context.Context, userID, vehicleID int64) ([]models.ChargingSession, error)
	ListWindow(ctx context.Context, userID, vehicleID int64, from, to time.Time) ([]models.ChargingSession, error)
	DistinctVehiclePairs(ctx context.Context) ([]models.VehiclePair, error)
}

// VehicleSource provides vehicle reads.
type VehicleSource interface {
	GetByID(ctx context.Context, userID, vehicleID int64) (*models.Vehicle, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Vehicle, error)
}

// SettingsSource provides per-user engine preferences.
type SettingsSource interface {
	GetByUser(ctx context.Context, userID int64) (*models.UserSettings, error)
}

// SnapshotCache stores computed metric bundles. Implementations must treat
// misses as (nil, nil), not errors.
type SnapshotCache interface {
	Save(ctx context.Context, snapshot redisstore.MetricsSnapshot) error
	Get(ctx context.Context, sessionID int64) (*redisstore.MetricsSnapshot, error)
	DeleteSession(ctx context.Context, userID, vehicleID, sessionID int64) error
	DeleteVehicle(ctx context.Context, userID, vehicleID int64) error
}

// InsightsService computes derived metrics over the session store. The cache
// is optional; everything recomputes from the store when it is absent or
// stale, so a cache failure can degrade latency but never correctness.
type InsightsService struct {
	sessions SessionSource
	vehicles VehicleSource
	settings SettingsSource
	cache    SnapshotCache
	baseCfg  engine.Config
	logger   *zap.Logger
}

// NewInsightsService builds service. cache may be nil.
func NewInsightsService(
	sessions SessionSource,
	vehicles VehicleSource,
	settings SettingsSource,
	cache SnapshotCache,
	baseCfg engine.Config,
	logger *zap.Logger,
) *InsightsService {
	return &InsightsService{
		sessions: sessions,
		vehicles: vehicles,
		settings: settings,
		cache:    cache,
		baseCfg:  baseCfg.Normalize(),
		logger:   logger,
	}
}

// SessionMetrics returns the full metric bundle for one session, serving a
// cached snapshot when its config hash still matches the user's thresholds.
func (s *InsightsService) SessionMetrics(ctx context.Context, sessionID int64) (engine.MetricsBundle, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return engine.MetricsBundle{}, err
	}

	cfg, err := s.configFor(ctx, session.UserID)
	if err != nil {
		return engine.MetricsBundle{}, err
	}

	if s.cache != nil {
		snapshot, err := s.cache.Get(ctx, sessionID)
		if err != nil {
			s.logger.Warn("metrics cache read failed, recomputing", zap.Int64("session_id", sessionID), zap.Error(err))
		} else if snapshot != nil && snapshot.ConfigHash == cfg.Hash() {
			return snapshot.Bundle, nil
		}
	}

	window, err := s.windowFor(ctx, *session, cfg)
	if err != nil {
		return engine.MetricsBundle{}, err
	}
	vehicle, err := s.vehicleFor(ctx, session.UserID, session.VehicleID)
	if err != nil {
		return engine.MetricsBundle{}, err
	}

	bundle := engine.ComposeMetrics(*session, window, vehicle, cfg)
	s.saveSnapshot(ctx, *session, cfg, bundle)
	return bundle, nil
}

// InvalidateSession drops cached metrics affected by a change to the given
// session. The whole vehicle is invalidated, not just the one snapshot: the
// changed session may be some later session's anchor.
func (s *InsightsService) InvalidateSession(ctx context.Context, sessionID int64) error {
	if s.cache == nil {
		return nil
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.cache.DeleteVehicle(ctx, session.UserID, session.VehicleID)
}

// InvalidateVehicle drops the vehicle's cached metrics. Callers use this
// directly after deleting a session, when the row is already gone.
func (s *InsightsService) InvalidateVehicle(ctx context.Context, userID, vehicleID int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteVehicle(ctx, userID, vehicleID)
}

// configFor resolves the user's effective engine config.
func (s *InsightsService) configFor(ctx context.Context, userID int64) (engine.Config, error) {
	settings, err := s.settings.GetByUser(ctx, userID)
	if err != nil {
		return engine.Config{}, err
	}
	return s.baseCfg.ForUser(settings), nil
}

// vehicleFor fetches the session's vehicle; a missing row only means the
// profile-efficiency fallback step has nothing to offer.
func (s *InsightsService) vehicleFor(ctx context.Context, userID, vehicleID int64) (*models.Vehicle, error) {
	vehicle, err := s.vehicles.GetByID(ctx, userID, vehicleID)
	if errors.Is(err, repository.ErrVehicleNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

// windowFor reads the single consistent session window a per-session
// computation needs: back far enough for the fallback lookback plus the
// anchor horizon of the lookback's own targets, up to the session's date.
func (s *InsightsService) windowFor(ctx context.Context, session models.ChargingSession, cfg engine.Config) ([]models.ChargingSession, error) {
	from := session.Date.AddDate(0, 0, -(cfg.AggregateLookbackDays + cfg.AnchorHorizonDays))
	return s.sessions.ListWindow(ctx, session.UserID, session.VehicleID, from, session.Date)
}

func (s *InsightsService) saveSnapshot(ctx context.Context, session models.ChargingSession, cfg engine.Config, bundle engine.MetricsBundle) {
	if s.cache == nil {
		return
	}
	err := s.cache.Save(ctx, redisstore.MetricsSnapshot{
		SessionID:  session.ID,
		UserID:     session.UserID,
		VehicleID:  session.VehicleID,
		ConfigHash: cfg.Hash(),
		ComputedAt: time.Now().UTC(),
		Bundle:     bundle,
	})
	if err != nil {
		s.logger.Warn("metrics cache write failed", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}
