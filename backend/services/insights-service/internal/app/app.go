package app

import (
	"context"
	"database/sql"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chargelog/backend/libs/db"
	libredis "chargelog/backend/libs/redis"
	"chargelog/backend/services/insights-service/internal/config"
	redisstore "chargelog/backend/services/insights-service/internal/redis"
	"chargelog/backend/services/insights-service/internal/repository"
	"chargelog/backend/services/insights-service/internal/service"
)

// App wires insights-service dependencies.
type App struct {
	insights    *service.InsightsService
	cfg         *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph. The rebuild entry point exists to
// warm the snapshot cache, so redis is required here even though the service
// itself can run without one.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if !cfg.CacheEnabled() {
		return nil, errors.New("app: redis addr required for snapshot rebuild")
	}

	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	sessionRepo := repository.NewSessionRepository(sqlDB)
	vehicleRepo := repository.NewVehicleRepository(sqlDB)
	settingsRepo := repository.NewSettingsRepository(sqlDB)
	snapshotStore := redisstore.NewStore(redisClient, cfg.SnapshotTTL())

	insights := service.NewInsightsService(
		sessionRepo,
		vehicleRepo,
		settingsRepo,
		snapshotStore,
		cfg.EngineConfig(),
		logger,
	)

	return &App{
		insights:    insights,
		cfg:         cfg,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run executes one snapshot rebuild over the configured scope and returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RunTimeout())
	defer cancel()

	var (
		report service.RebuildReport
		err    error
	)
	switch {
	case a.cfg.Recompute.UserID != 0 && a.cfg.Recompute.VehicleID != 0:
		report, err = a.insights.RecomputeVehicle(ctx, a.cfg.Recompute.UserID, a.cfg.Recompute.VehicleID)
	case a.cfg.Recompute.UserID != 0:
		report, err = a.insights.RecomputeUser(ctx, a.cfg.Recompute.UserID)
	default:
		report, err = a.insights.RecomputeAll(ctx)
	}
	if err != nil {
		return err
	}

	a.logger.Info("snapshot rebuild complete",
		zap.Int("vehicles", report.Vehicles),
		zap.Int("sessions", report.Sessions),
		zap.Int("snapshots", report.Snapshots),
		zap.Int("failed", report.Failed))
	return nil
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
