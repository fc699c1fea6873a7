package services

import (
	"context"

	"kocrou/internal/domain"
	"kocrou/internal/domain/models"
	"kocrou/internal/utils"
)

// DefaultSettings seeds the settings row on first read.
var DefaultSettings = models.Settings{
	CompanyName:  models.DefaultCompany,
	ContactEmail: "contact@kocrou.ci",
	WorkingHours: "Lun - Sam : 06h00 - 20h00",
}

type SettingsService struct {
	Settings  SettingsStore
	RequestID string
}

func (s SettingsService) Get(ctx context.Context) (models.Settings, error) {
	return s.Settings.Get(ctx, DefaultSettings)
}

func (s SettingsService) Update(ctx context.Context, p models.SettingsPatch) (models.Settings, error) {
	current, err := s.Settings.Get(ctx, DefaultSettings)
	if err != nil {
		return models.Settings{}, err
	}
	next := current.Apply(p)
	next.CompanyName = utils.NormalizeSpace(next.CompanyName)
	if next.CompanyName == "" {
		return models.Settings{}, domain.ValidationError{Field: "companyName", Msg: "le nom de la compagnie est obligatoire"}
	}
	if next.ContactEmail != "" {
		next.ContactEmail = utils.NormalizeEmail(next.ContactEmail)
		if !utils.ValidEmail(next.ContactEmail) {
			return models.Settings{}, domain.ValidationError{Field: "contactEmail", Msg: "e-mail de contact invalide"}
		}
	}
	if err := s.Settings.Save(ctx, next); err != nil {
		return models.Settings{}, err
	}
	utils.LogEvent(s.RequestID, "settings", "update", "company="+next.CompanyName)
	return next, nil
}
