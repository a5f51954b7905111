package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
)

type shopPayload struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Url   string `json:"url" validate:"required,url,max=200"`
	State *bool  `json:"state"`
}

type shopUpdatePayload struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=50"`
	Url   *string `json:"url" validate:"omitempty,url,max=200"`
	State *bool   `json:"state"`
}

// registerShopRoutes registers shop CRUD routes
func registerShopRoutes() {
	webserver.ApiGET("/shops", listShops)
	webserver.ApiGET("/shops/:id", getShop)
	webserver.ApiPOST("/shops", createShop)
	webserver.ApiPUT("/shops/:id", updateShop)
	webserver.ApiDELETE("/shops/:id", deleteShop)
}

func listShops(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Shop{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "name", q)
	}
	if state := strings.TrimSpace(c.QueryParam("state")); state != "" {
		db = db.Where("state = ?", state == "true" || state == "1" || state == common.ENABLED)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shops", err.Error())
	}

	var shops []domain.Shop
	if err := db.Order(nameOrder(c, "id", "name", "created_at")).Offset((page-1)*pageSize).Limit(pageSize).Find(&shops).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shops", err.Error())
	}

	return paged(c, shops, total, page, pageSize)
}

func getShop(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid shop ID", nil)
	}

	var s domain.Shop
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Shop not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shop", err.Error())
	}

	return ok(c, s)
}

func createShop(c echo.Context) error {
	var payload shopPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse shop parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Url = strings.TrimSpace(payload.Url)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if dup, err := rowExists(GetDB(c), &domain.Shop{}, "name = ? OR url = ?", payload.Name, payload.Url); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop name or url already exists", nil)
	}

	shop := domain.Shop{
		ID:        common.UUIDint64(),
		Name:      payload.Name,
		Url:       payload.Url,
		State:     payload.State == nil || *payload.State,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// a shop user without a shop becomes its owner
	user := currentUser(c)
	if user.Type == domain.UserTypeShop {
		owned, err := rowExists(GetDB(c), &domain.Shop{}, "user_id = ?", user.Uid)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shops", err.Error())
		}
		if !owned {
			uid := user.Uid
			shop.UserId = &uid
		}
	}

	if err := GetDB(c).Create(&shop).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop name or url already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create shop", err.Error())
	}

	return created(c, shop)
}

func updateShop(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid shop ID", nil)
	}

	var payload shopUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse shop parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var s domain.Shop
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Shop not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shop", err.Error())
	}
	if !canManageShop(c, &s) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Shop belongs to another user", nil)
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name != s.Name {
			if dup, err := rowExists(GetDB(c), &domain.Shop{}, "name = ? AND id != ?", name, id); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
			} else if dup {
				return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop name already exists", nil)
			}
			s.Name = name
		}
	}
	if payload.Url != nil {
		url := strings.TrimSpace(*payload.Url)
		if url != s.Url {
			if dup, err := rowExists(GetDB(c), &domain.Shop{}, "url = ? AND id != ?", url, id); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
			} else if dup {
				return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop url already exists", nil)
			}
			s.Url = url
		}
	}
	if payload.State != nil {
		s.State = *payload.State
	}
	s.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&s).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop name or url already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update shop", err.Error())
	}

	return ok(c, s)
}

func deleteShop(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid shop ID", nil)
	}

	var s domain.Shop
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Shop not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shop", err.Error())
	}
	if !canManageShop(c, &s) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Shop belongs to another user", nil)
	}

	if err := catalog.DeleteShop(GetDB(c), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete shop", err.Error())
	}
	logOperation(c, "", "delete_shop", s.Name)

	return c.NoContent(http.StatusNoContent)
}
