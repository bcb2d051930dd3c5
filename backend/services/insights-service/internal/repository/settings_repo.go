package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargelog/backend/services/insights-service/internal/models"
)

// SettingsRepository reads per-user engine preferences.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository returns repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByUser returns the user's saved preferences, or nil when the user never
// saved any. Absence is ordinary here, not an error: the engine then runs on
// service defaults.
func (r *SettingsRepository) GetByUser(ctx context.Context, userID int64) (*models.UserSettings, error) {
	const query = `
		SELECT user_id, fallback_enabled, default_mi_per_kwh, petrol_cost_per_mile,
		       min_delta_miles, min_energy_kwh, max_anchor_gap_days,
		       plausible_min, plausible_max, anchor_horizon_days,
		       aggregate_lookback_days, aggregate_min_miles, aggregate_min_energy_kwh
		FROM user_settings
		WHERE user_id = $1
	`
	var (
		s         models.UserSettings
		minDelta  sql.NullFloat64
		minEnergy sql.NullFloat64
		gapDays   sql.NullInt64
		bandMin   sql.NullFloat64
		bandMax   sql.NullFloat64
		horizon   sql.NullInt64
		lookback  sql.NullInt64
		aggMiles  sql.NullFloat64
		aggEnergy sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID,
		&s.FallbackEnabled,
		&s.DefaultMiPerKWh,
		&s.PetrolCostPerMile,
		&minDelta,
		&minEnergy,
		&gapDays,
		&bandMin,
		&bandMax,
		&horizon,
		&lookback,
		&aggMiles,
		&aggEnergy,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.MinDeltaMiles = nullFloat(minDelta)
	s.MinEnergyKWh = nullFloat(minEnergy)
	s.MaxAnchorGapDays = nullInt(gapDays)
	s.PlausibleMin = nullFloat(bandMin)
	s.PlausibleMax = nullFloat(bandMax)
	s.AnchorHorizonDays = nullInt(horizon)
	s.AggregateLookbackDays = nullInt(lookback)
	s.AggregateMinMiles = nullFloat(aggMiles)
	s.AggregateMinEnergyKWh = nullFloat(aggEnergy)
	return &s, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
