package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PreferenceRepository implements domain.PreferenceRepository using PostgreSQL
type PreferenceRepository struct {
	pool *pgxpool.Pool
}

// NewPreferenceRepository creates a new PreferenceRepository
func NewPreferenceRepository(pool *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{pool: pool}
}

// Get returns the stored value and whether it exists
func (r *PreferenceRepository) Get(ctx context.Context, userID uuid.UUID, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM user_preferences WHERE user_id = $1 AND key = $2`, userID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value
func (r *PreferenceRepository) Set(ctx context.Context, userID uuid.UUID, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_preferences (user_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		userID, key, value)
	return err
}

// Remove deletes key. Removing a missing key is not an error.
func (r *PreferenceRepository) Remove(ctx context.Context, userID uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_preferences WHERE user_id = $1 AND key = $2`, userID, key)
	return err
}

// DevicePreferenceRepository implements domain.DevicePreferenceRepository using PostgreSQL
type DevicePreferenceRepository struct {
	pool *pgxpool.Pool
}

// NewDevicePreferenceRepository creates a new DevicePreferenceRepository
func NewDevicePreferenceRepository(pool *pgxpool.Pool) *DevicePreferenceRepository {
	return &DevicePreferenceRepository{pool: pool}
}

func (r *DevicePreferenceRepository) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM device_preferences WHERE device_id = $1 AND key = $2`, deviceID, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *DevicePreferenceRepository) Set(ctx context.Context, deviceID, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO device_preferences (device_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (device_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		deviceID, key, value)
	return err
}

func (r *DevicePreferenceRepository) Remove(ctx context.Context, deviceID, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM device_preferences WHERE device_id = $1 AND key = $2`, deviceID, key)
	return err
}
