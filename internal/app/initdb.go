package app

import (
	"errors"
	"strings"
	"time"

	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	superUsername   = "admin"
	superEmail      = "admin@retailhub.local"
	defaultPassword = "retailhub"
)

// checkSuper makes sure an enabled admin account exists
func (a *Application) checkSuper() {
	var user domain.SysUser
	err := a.gormDB.Where("username = ?", superUsername).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hashedPassword, herr := common.HashPassword(defaultPassword)
		if herr != nil {
			zap.L().Error("failed to hash default password", zap.Error(herr))
			return
		}
		if err := a.gormDB.Create(&domain.SysUser{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Email:     superEmail,
			Username:  superUsername,
			Password:  hashedPassword,
			Type:      domain.UserTypeAdmin,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query admin", zap.Error(err))
		return
	}

	resetType := user.Type != domain.UserTypeAdmin
	resetStatus := !strings.EqualFold(user.Status, common.ENABLED)
	if !resetType && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"type":       domain.UserTypeAdmin,
		"status":     common.ENABLED,
		"updated_at": time.Now(),
	}
	if err := a.gormDB.Model(&domain.SysUser{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default admin account",
		zap.String("username", superUsername),
		zap.Bool("typeReset", resetType),
		zap.Bool("statusEnabled", resetStatus))
}
