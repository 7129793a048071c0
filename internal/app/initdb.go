package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/clinicore/clinicore/internal/domain"
	"github.com/clinicore/clinicore/pkg/common"
)

const DefaultTenantId int64 = 999999999

func (a *Application) checkSuper() {
	const superUsername = "admin"
	const defaultPassword = "clinicore"

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash default password", zap.Error(err))
		return
	}

	var operator domain.SysOpr
	err = a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			TenantId:  DefaultTenantId,
			Realname:  "administrator",
			Mobile:    "0000",
			Email:     "N/A",
			Username:  superUsername,
			Password:  string(hashed),
			Level:     "super",
			Status:    common.ENABLED,
			Remark:    "super",
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = string(hashed)
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}
	if err := a.gormDB.Model(&domain.SysOpr{}).
		Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin", zap.Error(err))
	}
}

func (a *Application) checkSettings() {
	defaults := []domain.SysConfig{
		{Type: SettingsChannel, Name: ConfigChannelSweepEnabled, Value: "true", Remark: "Re-attach reconcile loops for pending channels"},
		{Type: SettingsChannel, Name: ConfigChannelNotifyEmail, Value: "", Remark: "Address notified when a channel connects"},
		{Type: SettingsChannel, Name: ConfigAuditHistoryDays, Value: "90", Remark: "Days of channel audit history to keep"},
	}
	for _, def := range defaults {
		var cfg domain.SysConfig
		err := a.gormDB.Where("type = ? and name = ?", def.Type, def.Name).First(&cfg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			def.ID = common.UUIDint64()
			if err := a.gormDB.Create(&def).Error; err != nil {
				zap.L().Error("failed to create default setting", zap.String("name", def.Name), zap.Error(err))
			}
		}
	}
}

// checkDefaultTenant seeds the fallback tenant used by the bundled admin
// account.
func (a *Application) checkDefaultTenant() {
	var tenant domain.Tenant
	err := a.gormDB.Where("id = ?", DefaultTenantId).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		a.gormDB.Create(&domain.Tenant{
			ID:     DefaultTenantId,
			Name:   "default",
			Status: common.ENABLED,
			Remark: "Default bootstrap tenant",
		})
	}
}
