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

type productParameterPayload struct {
	ProductInfoId int64  `json:"product_info_id,string" validate:"required"`
	ParameterId   int64  `json:"parameter_id,string" validate:"required"`
	Value         string `json:"value" validate:"required,max=100"`
}

type productParameterUpdatePayload struct {
	Value string `json:"value" validate:"required,max=100"`
}

func registerProductParameterRoutes() {
	webserver.ApiGET("/product-parameters", listProductParameters)
	webserver.ApiGET("/product-parameters/:id", getProductParameter)
	webserver.ApiPOST("/product-parameters", createProductParameter)
	webserver.ApiPUT("/product-parameters/:id", updateProductParameter)
	webserver.ApiDELETE("/product-parameters/:id", deleteProductParameter)
}

func listProductParameters(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.ProductParameter{})
	for _, f := range []string{"product_info_id", "parameter_id"} {
		id, err := parseOptionalID(c.QueryParam(f))
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+f, nil)
		}
		if id != 0 {
			db = db.Where(f+" = ?", id)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product parameters", err.Error())
	}
	var rows []domain.ProductParameter
	if err := db.Order("id DESC").Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product parameters", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getProductParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product parameter ID", nil)
	}
	var pp domain.ProductParameter
	if err := GetDB(c).Where("id = ?", id).First(&pp).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_PARAMETER_NOT_FOUND", "Product parameter not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product parameter", err.Error())
	}
	return ok(c, pp)
}

func createProductParameter(c echo.Context) error {
	var payload productParameterPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameter", err.Error())
	}
	payload.Value = strings.TrimSpace(payload.Value)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	db := GetDB(c)
	if pi, resp := authorizeProductInfo(c, payload.ProductInfoId); pi == nil {
		return resp
	}
	if found, resp := loadByID(c, &domain.Parameter{}, payload.ParameterId, "PARAMETER_NOT_FOUND", "Parameter"); !found {
		return resp
	}
	dup, err := rowExists(db, &domain.ProductParameter{},
		"product_info_id = ? AND parameter_id = ?", payload.ProductInfoId, payload.ParameterId)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	}
	if dup {
		return fail(c, http.StatusConflict, "PRODUCT_PARAMETER_EXISTS", "Parameter is already set for this product info", nil)
	}

	pp := domain.ProductParameter{
		ID:            common.UUIDint64(),
		ProductInfoId: payload.ProductInfoId,
		ParameterId:   payload.ParameterId,
		Value:         payload.Value,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&pp).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "PRODUCT_PARAMETER_EXISTS", "Parameter is already set for this product info", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product parameter", err.Error())
	}
	return created(c, pp)
}

func updateProductParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product parameter ID", nil)
	}
	var payload productParameterUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product parameter", nil)
	}
	payload.Value = strings.TrimSpace(payload.Value)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var pp domain.ProductParameter
	if found, resp := loadByID(c, &pp, id, "PRODUCT_PARAMETER_NOT_FOUND", "Product parameter"); !found {
		return resp
	}
	if pi, resp := authorizeProductInfo(c, pp.ProductInfoId); pi == nil {
		return resp
	}
	pp.Value = payload.Value
	pp.UpdatedAt = time.Now()
	if err := GetDB(c).Save(&pp).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product parameter", err.Error())
	}
	return ok(c, pp)
}

func deleteProductParameter(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product parameter ID", nil)
	}
	var pp domain.ProductParameter
	if found, resp := loadByID(c, &pp, id, "PRODUCT_PARAMETER_NOT_FOUND", "Product parameter"); !found {
		return resp
	}
	if pi, resp := authorizeProductInfo(c, pp.ProductInfoId); pi == nil {
		return resp
	}
	if err := GetDB(c).Delete(&domain.ProductParameter{}, pp.ID).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product parameter", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
