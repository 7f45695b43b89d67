package repository

import (
	"context"
	"time"

	"gitlab.com/yelinaung/claimspro/internal/database"
	"gitlab.com/yelinaung/claimspro/internal/models"
)

// SettingsRepository handles the singleton settings row.
type SettingsRepository struct {
	db database.PGXDB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db database.PGXDB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the settings. Returns models.ErrNotFound before first initialization.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var s models.Settings
	var timeoutSeconds int64
	err := r.db.QueryRow(ctx, `
		SELECT company_name, company_abn, default_gst_rate, admin_password_hash, session_timeout_seconds
		FROM settings WHERE id = 'default'
	`).Scan(&s.CompanyName, &s.CompanyABN, &s.DefaultGSTRate, &s.AdminPasswordHash, &timeoutSeconds)
	if err != nil {
		return nil, dbError("get settings", err)
	}
	s.SessionTimeout = time.Duration(timeoutSeconds) * time.Second
	return &s, nil
}

// Save inserts or replaces the settings.
func (r *SettingsRepository) Save(ctx context.Context, s *models.Settings) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO settings (id, company_name, company_abn, default_gst_rate, admin_password_hash, session_timeout_seconds)
		VALUES ('default', $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			company_abn = EXCLUDED.company_abn,
			default_gst_rate = EXCLUDED.default_gst_rate,
			admin_password_hash = EXCLUDED.admin_password_hash,
			session_timeout_seconds = EXCLUDED.session_timeout_seconds,
			updated_at = NOW()
	`, s.CompanyName, s.CompanyABN, s.DefaultGSTRate, s.AdminPasswordHash, int64(s.SessionTimeout/time.Second))
	if err != nil {
		return dbError("save settings", err)
	}
	return nil
}

// Delete removes the settings row.
func (r *SettingsRepository) Delete(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM settings`); err != nil {
		return dbError("clear settings", err)
	}
	return nil
}
