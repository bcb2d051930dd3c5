package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chargelog/backend/services/insights-service/internal/models"
)

// ErrSessionNotFound indicates a missing session id.
var ErrSessionNotFound = errors.New("session not found")

// sessionColumns is the canonical select list; every reader scans exactly
// these in this order.
const sessionColumns = `
	id, user_id, vehicle_id, session_date, odometer_miles, energy_kwh,
	soc_from, soc_to, charge_type, charge_power_kw, duration_min,
	cost_per_kwh, location_label, network, is_baseline, ambient_temp_c,
	venue_type, created_at`

// SessionRepository reads charging sessions. The insights core never writes
// them; session CRUD lives in its own service.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID returns one session.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ChargingSession, error) {
	const query = `
		SELECT` + sessionColumns + `
		FROM charging_sessions
		WHERE id = $1
	`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByVehicle returns a vehicle's full history in (session_date, id) order.
// Anchor resolution depends on this ordering, so it is fixed in SQL rather
// than re-sorted by callers.
func (r *SessionRepository) ListByVehicle(ctx context.Context, userID, vehicleID int64) ([]models.ChargingSession, error) {
	const query = `
		SELECT` + sessionColumns + `
		FROM charging_sessions
		WHERE user_id = $1 AND vehicle_id = $2
		ORDER BY session_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, vehicleID)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListWindow returns a vehicle's sessions with session_date in [from, to],
// same ordering as ListByVehicle. Callers pad `from` backwards far enough to
// cover anchor and lookback horizons.
func (r *SessionRepository) ListWindow(ctx context.Context, userID, vehicleID int64, from, to time.Time) ([]models.ChargingSession, error) {
	const query = `
		SELECT` + sessionColumns + `
		FROM charging_sessions
		WHERE user_id = $1 AND vehicle_id = $2
		  AND session_date BETWEEN $3 AND $4
		ORDER BY session_date, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID, vehicleID, from, to)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// DistinctVehiclePairs lists every (user, vehicle) with at least one session,
// for whole-store recomputes.
func (r *SessionRepository) DistinctVehiclePairs(ctx context.Context) ([]models.VehiclePair, error) {
	const query = `
		SELECT DISTINCT user_id, vehicle_id
		FROM charging_sessions
		ORDER BY user_id, vehicle_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []models.VehiclePair
	for rows.Next() {
		var p models.VehiclePair
		if err := rows.Scan(&p.UserID, &p.VehicleID); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.ChargingSession, error) {
	var (
		s       models.ChargingSession
		ambient sql.NullFloat64
	)
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.VehicleID,
		&s.Date,
		&s.OdometerMiles,
		&s.EnergyKWh,
		&s.SocFrom,
		&s.SocTo,
		&s.ChargeType,
		&s.ChargePowerKW,
		&s.DurationMin,
		&s.CostPerKWh,
		&s.LocationLabel,
		&s.Network,
		&s.IsBaseline,
		&ambient,
		&s.VenueType,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if ambient.Valid {
		s.AmbientTempC = &ambient.Float64
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]models.ChargingSession, error) {
	defer rows.Close()

	var sessions []models.ChargingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
