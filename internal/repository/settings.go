package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

var ErrSettingNotFound = errors.New("setting not found")

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrSettingNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()
	`, key, value)
	return err
}

func (r *Repository) ListSettings(ctx context.Context) ([]model.Setting, error) {
	settings := []model.Setting{}
	err := r.db.SelectContext(ctx, &settings, "SELECT key, value, updated_at FROM settings ORDER BY key ASC")
	return settings, err
}

func (r *Repository) DeleteSetting(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM settings WHERE key = $1", key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSettingNotFound
	}
	return nil
}
