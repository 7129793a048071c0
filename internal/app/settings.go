package app

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore/internal/domain"
)

// Settings categories and names surfaced to operators at runtime.
const (
	SettingsChannel = "channel"

	ConfigChannelSweepEnabled = "SweepEnabled"
	ConfigChannelNotifyEmail  = "NotifyEmail"
	ConfigAuditHistoryDays    = "AuditHistoryDays"
)

// GetSettingsStringValue retrieves a string configuration value
func (a *Application) GetSettingsStringValue(category, key string) string {
	var cfg domain.SysConfig
	err := a.gormDB.Where("type = ? and name = ?", category, key).First(&cfg).Error
	if err != nil {
		return ""
	}
	return cfg.Value
}

// GetSettingsInt64Value retrieves an int64 configuration value
func (a *Application) GetSettingsInt64Value(category, key string) int64 {
	return cast.ToInt64(a.GetSettingsStringValue(category, key))
}

// GetSettingsBoolValue retrieves a boolean configuration value
func (a *Application) GetSettingsBoolValue(category, key string) bool {
	return cast.ToBool(a.GetSettingsStringValue(category, key))
}

// SaveSettings upserts configuration settings; keys are "category.name".
func (a *Application) SaveSettings(settings map[string]interface{}) error {
	for key, value := range settings {
		parts := strings.SplitN(key, ".", 2)
		if len(parts) != 2 {
			continue
		}
		category, name := parts[0], parts[1]
		var cfg domain.SysConfig
		err := a.gormDB.Where("type = ? and name = ?", category, name).First(&cfg).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := a.gormDB.Create(&domain.SysConfig{
				Type:  category,
				Name:  name,
				Value: cast.ToString(value),
			}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := a.gormDB.Model(&domain.SysConfig{}).
				Where("id = ?", cfg.ID).
				Updates(map[string]interface{}{
					"value":      cast.ToString(value),
					"updated_at": time.Now(),
				}).Error; err != nil {
				return err
			}
		}
	}
	zap.L().Info("settings saved", zap.Int("count", len(settings)))
	return nil
}
