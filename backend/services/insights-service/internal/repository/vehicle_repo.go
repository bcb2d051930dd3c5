package repository

import (
	"context"
	"database/sql"
	"errors"

	"chargelog/backend/services/insights-service/internal/models"
)

// ErrVehicleNotFound indicates a missing vehicle id.
var ErrVehicleNotFound = errors.New("vehicle not found")

// VehicleRepository reads vehicle records.
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository returns repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// GetByID returns one vehicle scoped to its owner.
func (r *VehicleRepository) GetByID(ctx context.Context, userID, vehicleID int64) (*models.Vehicle, error) {
	const query = `
		SELECT id, user_id, name, profile_mi_per_kwh, battery_kwh, created_at
		FROM vehicles
		WHERE id = $1 AND user_id = $2
	`
	var v models.Vehicle
	err := r.db.QueryRowContext(ctx, query, vehicleID, userID).Scan(
		&v.ID,
		&v.UserID,
		&v.Name,
		&v.ProfileMiPerKWh,
		&v.BatteryKWh,
		&v.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByUser returns the user's vehicles ordered by id.
func (r *VehicleRepository) ListByUser(ctx context.Context, userID int64) ([]models.Vehicle, error) {
	const query = `
		SELECT id, user_id, name, profile_mi_per_kwh, battery_kwh, created_at
		FROM vehicles
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(
			&v.ID,
			&v.UserID,
			&v.Name,
			&v.ProfileMiPerKWh,
			&v.BatteryKWh,
			&v.CreatedAt,
		); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vehicles, nil
}
