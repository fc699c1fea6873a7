package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "kocrou/internal/config"
	"kocrou/internal/domain/models"
)

const settingsRowID = 1

type SettingsRepository struct {
	DB *sql.DB
}

func (r SettingsRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Get returns the settings row, creating it from defaults on first read.
func (r SettingsRepository) Get(ctx context.Context, defaults models.Settings) (models.Settings, error) {
	var s models.Settings
	err := r.db().QueryRowContext(ctx, `
		SELECT company_name, logo, contact_email, phone, address, working_hours
		FROM settings WHERE id=?
	`, settingsRowID).Scan(&s.CompanyName, &s.Logo, &s.ContactEmail, &s.Phone, &s.Address, &s.WorkingHours)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if err := r.Save(ctx, defaults); err != nil {
		return models.Settings{}, err
	}
	return defaults, nil
}

func (r SettingsRepository) Save(ctx context.Context, s models.Settings) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO settings (id, company_name, logo, contact_email, phone, address, working_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			company_name=VALUES(company_name), logo=VALUES(logo), contact_email=VALUES(contact_email),
			phone=VALUES(phone), address=VALUES(address), working_hours=VALUES(working_hours)
	`, settingsRowID, s.CompanyName, s.Logo, s.ContactEmail, s.Phone, s.Address, s.WorkingHours)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
