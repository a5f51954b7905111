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

type productPayload struct {
	Name       string `json:"name" validate:"required,min=1,max=80"`
	CategoryId int64  `json:"category_id,string" validate:"required"`
}

type productUpdatePayload struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=80"`
	CategoryId int64   `json:"category_id,string"`
}

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "name", q)
	}
	categoryID, err := parseOptionalID(c.QueryParam("category_id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid category_id", nil)
	}
	if categoryID != 0 {
		db = db.Where("category_id = ?", categoryID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(nameOrder(c, "id", "name", "created_at", "updated_at")).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if found, resp := loadByID(c, &domain.Category{}, payload.CategoryId, "CATEGORY_NOT_FOUND", "Category"); !found {
		return resp
	}

	if dup, err := rowExists(GetDB(c), &domain.Product{}, "name = ?", payload.Name); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "PRODUCT_EXISTS", "Product name already exists", nil)
	}

	now := time.Now()
	p := domain.Product{
		ID:         common.UUIDint64(),
		Name:       payload.Name,
		CategoryId: payload.CategoryId,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := GetDB(c).Create(&p).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "PRODUCT_EXISTS", "Product name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	return created(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name != p.Name {
			if dup, err := rowExists(GetDB(c), &domain.Product{}, "name = ? AND id != ?", name, id); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
			} else if dup {
				return fail(c, http.StatusConflict, "PRODUCT_EXISTS", "Product name already exists", nil)
			}
			p.Name = name
		}
	}
	if payload.CategoryId != 0 && payload.CategoryId != p.CategoryId {
		if found, resp := loadByID(c, &domain.Category{}, payload.CategoryId, "CATEGORY_NOT_FOUND", "Category"); !found {
			return resp
		}
		p.CategoryId = payload.CategoryId
	}
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "PRODUCT_EXISTS", "Product name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if err := catalog.DeleteProduct(GetDB(c), id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
