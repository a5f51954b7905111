package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
)

type productInfoPayload struct {
	ProductId  int64            `json:"product_id,string" validate:"required"`
	ShopId     int64            `json:"shop_id,string" validate:"required"`
	ExternalId int64            `json:"external_id"`
	Model      string           `json:"model" validate:"omitempty,max=80"`
	Name       string           `json:"name" validate:"omitempty,max=80"`
	Quantity   int              `json:"quantity" validate:"min=0"`
	Price      *decimal.Decimal `json:"price" validate:"required"`
	PriceRrc   *decimal.Decimal `json:"price_rrc"`
}

type productInfoUpdatePayload struct {
	ExternalId *int64           `json:"external_id"`
	Model      *string          `json:"model" validate:"omitempty,max=80"`
	Name       *string          `json:"name" validate:"omitempty,max=80"`
	Quantity   *int             `json:"quantity" validate:"omitempty,min=0"`
	Price      *decimal.Decimal `json:"price"`
	PriceRrc   *decimal.Decimal `json:"price_rrc"`
}

type parameterValue struct {
	ID          int64  `json:"id,string"`
	ParameterId int64  `json:"parameter_id,string"`
	Name        string `json:"name"`
	Value       string `json:"value"`
}

type productInfoDetail struct {
	domain.ProductInfo
	ProductName string           `json:"product_name"`
	ShopName    string           `json:"shop_name"`
	Parameters  []parameterValue `json:"parameters"`
}

func registerProductInfoRoutes() {
	webserver.ApiGET("/product-infos", listProductInfos)
	webserver.ApiGET("/product-infos/:id", getProductInfo)
	webserver.ApiPOST("/product-infos", createProductInfo)
	webserver.ApiPUT("/product-infos/:id", updateProductInfo)
	webserver.ApiDELETE("/product-infos/:id", deleteProductInfo)
}

func listProductInfos(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.ProductInfo{})
	for _, f := range []string{"shop_id", "product_id"} {
		id, err := parseOptionalID(c.QueryParam(f))
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+f, nil)
		}
		if id != 0 {
			db = db.Where(f+" = ?", id)
		}
	}
	categoryID, err := parseOptionalID(c.QueryParam("category_id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid category_id", nil)
	}
	if categoryID != 0 {
		db = db.Where("product_id IN (?)", GetDB(c).Model(&domain.Product{}).Select("id").Where("category_id = ?", categoryID))
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "name", q)
	}
	if c.QueryParam("active") == "true" {
		db = db.Where("shop_id IN (?)", GetDB(c).Model(&domain.Shop{}).Select("id").Where("state = ?", true))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product infos", err.Error())
	}

	var rows []domain.ProductInfo
	if err := db.Order(nameOrder(c, "id", "name", "price", "quantity")).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product infos", err.Error())
	}
	return paged(c, rows, total, page, pageSize)
}

func getProductInfo(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product info ID", nil)
	}
	db := GetDB(c)
	var pi domain.ProductInfo
	if err := db.Where("id = ?", id).First(&pi).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_INFO_NOT_FOUND", "Product info not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product info", err.Error())
	}

	detail := productInfoDetail{ProductInfo: pi, Parameters: []parameterValue{}}
	var p domain.Product
	if err := db.Where("id = ?", pi.ProductId).First(&p).Error; err == nil {
		detail.ProductName = p.Name
	}
	var s domain.Shop
	if err := db.Where("id = ?", pi.ShopId).First(&s).Error; err == nil {
		detail.ShopName = s.Name
	}
	if err := db.Table("product_parameter pp").
		Select("pp.id, pp.parameter_id, pa.name, pp.value").
		Joins("JOIN parameter pa ON pa.id = pp.parameter_id").
		Where("pp.product_info_id = ?", pi.ID).
		Order("pa.name").
		Scan(&detail.Parameters).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query parameters", err.Error())
	}
	return ok(c, detail)
}

func createProductInfo(c echo.Context) error {
	var payload productInfoPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product info", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if payload.PriceRrc == nil {
		payload.PriceRrc = payload.Price
	}
	if payload.Price.IsNegative() || payload.PriceRrc.IsNegative() {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be >= 0", nil)
	}

	db := GetDB(c)
	var product domain.Product
	if found, resp := loadByID(c, &product, payload.ProductId, "PRODUCT_NOT_FOUND", "Product"); !found {
		return resp
	}
	var shop domain.Shop
	if found, resp := loadByID(c, &shop, payload.ShopId, "SHOP_NOT_FOUND", "Shop"); !found {
		return resp
	}
	if !canManageShop(c, &shop) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Shop belongs to another user", nil)
	}

	if dup, err := rowExists(db, &domain.ProductInfo{}, "product_id = ? AND shop_id = ?", payload.ProductId, payload.ShopId); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "PRODUCT_INFO_EXISTS", "Product is already listed by this shop", nil)
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		name = product.Name
	}
	now := time.Now()
	pi := domain.ProductInfo{
		ID:         common.UUIDint64(),
		ProductId:  payload.ProductId,
		ShopId:     payload.ShopId,
		ExternalId: payload.ExternalId,
		Model:      strings.TrimSpace(payload.Model),
		Name:       name,
		Quantity:   payload.Quantity,
		Price:      payload.Price.Round(2),
		PriceRrc:   payload.PriceRrc.Round(2),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&pi).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "PRODUCT_INFO_EXISTS", "Product is already listed by this shop", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product info", err.Error())
	}
	return created(c, pi)
}

func updateProductInfo(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product info ID", nil)
	}
	var payload productInfoUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product info", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	db := GetDB(c)
	pi, resp := authorizeProductInfo(c, id)
	if pi == nil {
		return resp
	}

	if payload.ExternalId != nil {
		pi.ExternalId = *payload.ExternalId
	}
	if payload.Model != nil {
		pi.Model = strings.TrimSpace(*payload.Model)
	}
	if payload.Name != nil {
		pi.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Quantity != nil {
		pi.Quantity = *payload.Quantity
	}
	if payload.Price != nil {
		if payload.Price.IsNegative() {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be >= 0", nil)
		}
		pi.Price = payload.Price.Round(2)
	}
	if payload.PriceRrc != nil {
		if payload.PriceRrc.IsNegative() {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Price must be >= 0", nil)
		}
		pi.PriceRrc = payload.PriceRrc.Round(2)
	}
	pi.UpdatedAt = time.Now()

	if err := db.Save(pi).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product info", err.Error())
	}
	return ok(c, pi)
}

func deleteProductInfo(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product info ID", nil)
	}
	db := GetDB(c)
	pi, resp := authorizeProductInfo(c, id)
	if pi == nil {
		return resp
	}
	if err := catalog.DeleteProductInfo(db, id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product info", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
