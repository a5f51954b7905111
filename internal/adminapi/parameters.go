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

type parameterPayload struct {
	Name string `json:"name" validate:"required,min=1,max=40"`
}

func registerParameterRoutes() {
	webserver.ApiGET("/parameters", listParameters)
	webserver.ApiGET("/parameters/:id", getParameter)
	webserver.ApiPOST("/parameters", createParameter)
	webserver.ApiPUT("/parameters/:id", updateParameter)
	webserver.ApiDELETE("/parameters/:id", deleteParameter)
}

func listParameters(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Parameter{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "name", q)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query parameters", err.Error())
	}
	var rows []domain.Parameter
	if err := db.Order(nameOrder(c, "id", "name")).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query parameters", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid parameter ID", nil)
	}
	var p domain.Parameter
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PARAMETER_NOT_FOUND", "Parameter not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query parameter", err.Error())
	}
	return ok(c, p)
}

func createParameter(c echo.Context) error {
	var payload parameterPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse parameter", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if dup, err := rowExists(GetDB(c), &domain.Parameter{}, "name = ?", payload.Name); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "PARAMETER_EXISTS", "Parameter name already exists", nil)
	}
	p := domain.Parameter{ID: common.UUIDint64(), Name: payload.Name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := GetDB(c).Create(&p).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "PARAMETER_EXISTS", "Parameter name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create parameter", err.Error())
	}
	return created(c, p)
}

func updateParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid parameter ID", nil)
	}
	var payload parameterPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse parameter", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var p domain.Parameter
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PARAMETER_NOT_FOUND", "Parameter not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query parameter", err.Error())
	}
	if payload.Name != p.Name {
		if dup, err := rowExists(GetDB(c), &domain.Parameter{}, "name = ? AND id != ?", payload.Name, id); err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
		} else if dup {
			return fail(c, http.StatusConflict, "PARAMETER_EXISTS", "Parameter name already exists", nil)
		}
	}
	p.Name = payload.Name
	p.UpdatedAt = time.Now()
	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update parameter", err.Error())
	}
	return ok(c, p)
}

func deleteParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid parameter ID", nil)
	}
	if err := catalog.DeleteParameter(GetDB(c), id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PARAMETER_NOT_FOUND", "Parameter not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete parameter", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
