package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
)

type categoryPayload struct {
	Name  string   `json:"name" validate:"required,min=1,max=40"`
	Shops []string `json:"shops"`
}

type categoryUpdatePayload struct {
	Name  *string   `json:"name" validate:"omitempty,min=1,max=40"`
	Shops *[]string `json:"shops"`
}

// categoryView is a category with the ids of the shops offering it
type categoryView struct {
	domain.Category
	Shops []string `json:"shops"`
}

func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "name", q)
	}
	shopID, err := parseOptionalID(c.QueryParam("shop_id"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid shop_id", nil)
	}
	if shopID != 0 {
		db = db.Where("id IN (?)", GetDB(c).Model(&domain.ShopCategory{}).Select("category_id").Where("shop_id = ?", shopID))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var rows []domain.Category
	if err := db.Order(nameOrder(c, "id", "name")).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	views, err := categoryViews(GetDB(c), rows)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category shops", err.Error())
	}
	return paged(c, views, total, page, pageSize)
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	views, err := categoryViews(GetDB(c), []domain.Category{cat})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category shops", err.Error())
	}
	return ok(c, views[0])
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	shopIDs, err := resolveShopIDs(GetDB(c), payload.Shops)
	if errors.Is(err, errUnknownShop) {
		return fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Shop not found", nil)
	} else if errors.Is(err, errInvalidShopID) {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shops", err.Error())
	}

	if dup, err := rowExists(GetDB(c), &domain.Category{}, "name = ?", payload.Name); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
	} else if dup {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	}

	cat := domain.Category{
		ID:        common.UUIDint64(),
		Name:      payload.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&cat).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category", err.Error())
	}
	if err := replaceCategoryShops(GetDB(c), cat.ID, shopIDs); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to link category shops", err.Error())
	}

	return created(c, categoryView{Category: cat, Shops: formatIDs(shopIDs)})
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	var payload categoryUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}

	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name != cat.Name {
			if dup, err := rowExists(GetDB(c), &domain.Category{}, "name = ? AND id != ?", name, id); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check uniqueness", err.Error())
			} else if dup {
				return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
			}
			cat.Name = name
		}
	}
	cat.UpdatedAt = time.Now()
	if err := GetDB(c).Save(&cat).Error; catalog.IsDuplicate(err) {
		return fail(c, http.StatusConflict, "CATEGORY_EXISTS", "Category name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category", err.Error())
	}

	if payload.Shops != nil {
		shopIDs, err := resolveShopIDs(GetDB(c), *payload.Shops)
		if errors.Is(err, errUnknownShop) {
			return fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Shop not found", nil)
		} else if errors.Is(err, errInvalidShopID) {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		} else if err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shops", err.Error())
		}
		if err := replaceCategoryShops(GetDB(c), cat.ID, shopIDs); err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to link category shops", err.Error())
		}
	}

	views, err := categoryViews(GetDB(c), []domain.Category{cat})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category shops", err.Error())
	}
	return ok(c, views[0])
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}
	if err := catalog.DeleteCategory(GetDB(c), id); errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

var (
	errUnknownShop   = errors.New("unknown shop in shops")
	errInvalidShopID = errors.New("invalid shop id")
)

// resolveShopIDs parses shop ids and makes sure every shop exists
func resolveShopIDs(db *gorm.DB, raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	seen := make(map[int64]bool, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w %q", errInvalidShopID, s)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ids, nil
	}
	var found int64
	if err := db.Model(&domain.Shop{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return nil, err
	}
	if int(found) != len(ids) {
		return nil, errUnknownShop
	}
	return ids, nil
}

func replaceCategoryShops(db *gorm.DB, categoryID int64, shopIDs []int64) error {
	if err := db.Where("category_id = ?", categoryID).Delete(&domain.ShopCategory{}).Error; err != nil {
		return err
	}
	for _, shopID := range shopIDs {
		link := domain.ShopCategory{ID: common.UUIDint64(), ShopId: shopID, CategoryId: categoryID}
		if err := db.Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

func categoryViews(db *gorm.DB, cats []domain.Category) ([]categoryView, error) {
	ids := make([]int64, 0, len(cats))
	for _, cat := range cats {
		ids = append(ids, cat.ID)
	}
	var links []domain.ShopCategory
	if len(ids) > 0 {
		if err := db.Where("category_id IN ?", ids).Order("shop_id").Find(&links).Error; err != nil {
			return nil, err
		}
	}
	byCategory := make(map[int64][]int64)
	for _, l := range links {
		byCategory[l.CategoryId] = append(byCategory[l.CategoryId], l.ShopId)
	}
	views := make([]categoryView, 0, len(cats))
	for _, cat := range cats {
		views = append(views, categoryView{Category: cat, Shops: formatIDs(byCategory[cat.ID])})
	}
	return views, nil
}

func formatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
