package models

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean, integer
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings represents the runtime settings editable from the dashboard
type AppSettings struct {
	SiteTitle               string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription         string `json:"site_description" validate:"max=500"`
	ReportSubmissionEnabled bool   `json:"report_submission_enabled"`
	PublicMapEnabled        bool   `json:"public_map_enabled"`
	AutoNotifyReporters     bool   `json:"auto_notify_reporters"`
	MaxImagesPerReport      int    `json:"max_images_per_report" validate:"min=0,max=10"`
	mu                      sync.RWMutex
}

// Global settings instance
var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

// DefaultAppSettings returns the settings used before anything is stored.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		SiteTitle:               "BantayDalan",
		SiteDescription:         "Crowd-sourced road hazard reporting",
		ReportSubmissionEnabled: true,
		PublicMapEnabled:        true,
		AutoNotifyReporters:     false,
		MaxImagesPerReport:      5,
	}
}

// GetAppSettings returns the current application settings, falling back to defaults
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if appSettings == nil {
		return DefaultAppSettings()
	}
	return appSettings
}

// LoadSettings loads settings from database into memory
func LoadSettings(db *gorm.DB) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	loaded := DefaultAppSettings()

	var settings []Setting
	if err := db.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	for _, setting := range settings {
		switch setting.Key {
		case "site_title":
			loaded.SiteTitle = setting.Value
		case "site_description":
			loaded.SiteDescription = setting.Value
		case "report_submission_enabled":
			loaded.ReportSubmissionEnabled = setting.Value == "true"
		case "public_map_enabled":
			loaded.PublicMapEnabled = setting.Value == "true"
		case "auto_notify_reporters":
			loaded.AutoNotifyReporters = setting.Value == "true"
		case "max_images_per_report":
			if n, err := strconv.Atoi(setting.Value); err == nil {
				loaded.MaxImagesPerReport = n
			}
		}
	}

	appSettings = loaded
	return nil
}

// SaveSettings saves settings to database and swaps the in-memory copy
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	settingsMap := map[string]interface{}{
		"site_title":                settings.SiteTitle,
		"site_description":          settings.SiteDescription,
		"report_submission_enabled": settings.ReportSubmissionEnabled,
		"public_map_enabled":        settings.PublicMapEnabled,
		"auto_notify_reporters":     settings.AutoNotifyReporters,
		"max_images_per_report":     settings.MaxImagesPerReport,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for key, value := range settingsMap {
			var setting Setting
			result := tx.Where("setting_key = ?", key).First(&setting)

			if result.Error != nil {
				if result.Error != gorm.ErrRecordNotFound {
					return fmt.Errorf("failed to query setting %s: %w", key, result.Error)
				}
				setting = Setting{
					Key:   key,
					Value: fmt.Sprintf("%v", value),
					Type:  getSettingType(key),
				}
				if err := tx.Create(&setting).Error; err != nil {
					return fmt.Errorf("failed to create setting %s: %w", key, err)
				}
				continue
			}

			setting.Value = fmt.Sprintf("%v", value)
			if err := tx.Save(&setting).Error; err != nil {
				return fmt.Errorf("failed to update setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appSettings = settings
	return nil
}

// getSettingType returns the type of a setting based on its key
func getSettingType(key string) string {
	switch key {
	case "report_submission_enabled", "public_map_enabled", "auto_notify_reporters":
		return "boolean"
	case "max_images_per_report":
		return "integer"
	default:
		return "string"
	}
}

// Validate validates the settings
func (s *AppSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// IsReportSubmissionEnabled returns whether reporters may submit new reports
func (s *AppSettings) IsReportSubmissionEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ReportSubmissionEnabled
}

// IsPublicMapEnabled returns whether the public map endpoint serves data
func (s *AppSettings) IsPublicMapEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.PublicMapEnabled
}

// ShouldNotifyReporters returns whether status changes trigger a reporter email
func (s *AppSettings) ShouldNotifyReporters() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AutoNotifyReporters
}

// GetMaxImagesPerReport returns the attachment limit per submission
func (s *AppSettings) GetMaxImagesPerReport() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MaxImagesPerReport
}
