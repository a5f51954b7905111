package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
)

func registerAuthRoutes() {
	webserver.ApiPublicPOST("/user/register", registerUser)
	webserver.ApiPublicPOST("/user/login", loginUser)
	webserver.ApiGET("/user/details", getUserDetails)
	webserver.ApiPUT("/user/details", updateUserDetails)
}

type registerPayload struct {
	Email    string `json:"email" validate:"required,email,max=200"`
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Realname string `json:"realname" validate:"max=150"`
	Type     string `json:"type" validate:"omitempty,oneof=buyer shop"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type detailsPayload struct {
	Realname *string `json:"realname" validate:"omitempty,max=150"`
	Email    *string `json:"email" validate:"omitempty,email,max=200"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

func registerUser(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", nil)
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Username = strings.TrimSpace(payload.Username)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.Type == "" {
		payload.Type = domain.UserTypeBuyer
	}

	if dup, err := rowExists(GetDB(c), &domain.SysUser{}, "email = ? OR username = ?", payload.Email, payload.Username); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "USER_EXISTS", "Email or username already registered", nil)
	}

	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash password", nil)
	}
	user := domain.SysUser{
		ID:        common.UUIDint64(),
		Email:     payload.Email,
		Username:  payload.Username,
		Password:  hashed,
		Realname:  payload.Realname,
		Type:      payload.Type,
		Status:    common.ENABLED,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&user).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "USER_EXISTS", "Email or username already registered", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", err.Error())
	}
	logOperation(c, user.Username, "register", "type "+user.Type)
	return created(c, user)
}

func loginUser(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", nil)
	}
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var user domain.SysUser
	err := GetDB(c).Where("email = ?", payload.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	if err != nil || !common.CheckPassword(user.Password, payload.Password) {
		zap.L().Warn("login failed", zap.String("email", payload.Email), zap.String("ip", c.RealIP()), zap.String("namespace", "auth"))
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if user.Status == common.DISABLED {
		return fail(c, http.StatusForbidden, "USER_DISABLED", "Account is disabled", nil)
	}

	cfg := GetAppContext(c).Config().Web
	ttl := time.Duration(cfg.JwtExpire) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, expire, err := webserver.CreateToken(cfg.Secret, user.ID, user.Username, user.Type, ttl)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue token", nil)
	}

	user.LastLogin = time.Now()
	GetDB(c).Model(&user).Update("last_login", user.LastLogin)
	logOperation(c, user.Username, "login", "login from "+c.RealIP())

	return ok(c, map[string]interface{}{
		"token":  token,
		"expire": expire,
		"user":   user,
	})
}

func getUserDetails(c echo.Context) error {
	var user domain.SysUser
	err := GetDB(c).Where("id = ?", currentUser(c).Uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}
	return ok(c, user)
}

func updateUserDetails(c echo.Context) error {
	var payload detailsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user details", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var user domain.SysUser
	if err := GetDB(c).Where("id = ?", currentUser(c).Uid).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if payload.Realname != nil {
		updates["realname"] = strings.TrimSpace(*payload.Realname)
	}
	if payload.Email != nil && strings.TrimSpace(*payload.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(*payload.Email))
		if dup, err := rowExists(GetDB(c), &domain.SysUser{}, "email = ? AND id != ?", email, user.ID); err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
		} else if dup {
			return fail(c, http.StatusConflict, "USER_EXISTS", "Email already registered", nil)
		}
		updates["email"] = email
	}
	if payload.Password != nil && *payload.Password != "" {
		hashed, err := common.HashPassword(*payload.Password)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to hash password", nil)
		}
		updates["password"] = hashed
	}
	if err := GetDB(c).Model(&user).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", err.Error())
	}
	GetDB(c).Where("id = ?", user.ID).First(&user)
	return ok(c, user)
}
