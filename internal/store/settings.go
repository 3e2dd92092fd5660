package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mramrohaleem/telegram-bot/internal/domain"
)

// Get returns the user's settings, falling back to defaults for users that
// never changed anything.
func (s *SettingsStore) Get(userID int64) (domain.UserSettings, error) {
	query := `
			SELECT user_id, naming_template_index, video_as_document, name_mode
			FROM user_settings
			WHERE user_id = ? LIMIT 1`

	row := s.db.QueryRow(query, userID)

	var settings domain.UserSettings
	var asDoc int
	err := row.Scan(&settings.UserID, &settings.NamingTemplateIndex, &asDoc, &settings.NameMode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(userID), nil
		}
		return domain.UserSettings{}, fmt.Errorf("failed to fetch settings: %w", err)
	}

	settings.VideoAsDocument = asDoc != 0
	return settings, nil
}

func (s *SettingsStore) Save(settings domain.UserSettings) error {
	query := `INSERT OR REPLACE INTO user_settings (user_id, naming_template_index, video_as_document, name_mode, updated_at)
              VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`

	asDoc := 0
	if settings.VideoAsDocument {
		asDoc = 1
	}

	_, err := s.db.Exec(query, settings.UserID, settings.NamingTemplateIndex, asDoc, settings.NameMode)
	return err
}

// CycleTemplate advances the user's naming template to the next option.
func (s *SettingsStore) CycleTemplate(userID int64) (domain.UserSettings, error) {
	settings, err := s.Get(userID)
	if err != nil {
		return domain.UserSettings{}, err
	}
	settings.NamingTemplateIndex = (settings.NamingTemplateIndex + 1) % len(domain.NamingTemplates)
	return settings, s.Save(settings)
}

// ToggleSendType flips whether videos are delivered as documents.
func (s *SettingsStore) ToggleSendType(userID int64) (domain.UserSettings, error) {
	settings, err := s.Get(userID)
	if err != nil {
		return domain.UserSettings{}, err
	}
	settings.VideoAsDocument = !settings.VideoAsDocument
	return settings, s.Save(settings)
}

// ToggleNameMode switches between automatic naming and asking the user.
func (s *SettingsStore) ToggleNameMode(userID int64) (domain.UserSettings, error) {
	settings, err := s.Get(userID)
	if err != nil {
		return domain.UserSettings{}, err
	}
	if settings.NameMode == domain.NameModeAuto {
		settings.NameMode = domain.NameModeAsk
	} else {
		settings.NameMode = domain.NameModeAuto
	}
	return settings, s.Save(settings)
}

// VideoAsDocument implements the preference lookup the delivery step uses.
// Lookup failures fall back to the default so a settings hiccup never fails
// a job.
func (s *SettingsStore) VideoAsDocument(userID int64) bool {
	settings, err := s.Get(userID)
	if err != nil {
		return false
	}
	return settings.VideoAsDocument
}
