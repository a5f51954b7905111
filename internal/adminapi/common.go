package adminapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/talkincode/retailhub/internal/app"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/ordering"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ListResponse is the envelope of paged list endpoints
type ListResponse struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// ErrorResponse is the envelope of failed requests
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func GetDB(c echo.Context) *gorm.DB {
	return webserver.GetDB(c)
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, map[string]interface{}{"data": data})
}

func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, ListResponse{Data: data, Total: total, Page: page, PageSize: pageSize})
}

func fail(c echo.Context, status int, code, message string, details interface{}) error {
	return c.JSON(status, ErrorResponse{Error: code, Message: message, Details: details})
}

// parsePagination reads page and pageSize (or perPage) query params
func parsePagination(c echo.Context) (int, int) {
	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := 20
	raw := c.QueryParam("pageSize")
	if raw == "" {
		raw = c.QueryParam("perPage")
	}
	if ps, err := strconv.Atoi(raw); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}
	return page, pageSize
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// parseOptionalID parses an id filter; empty means no filter
func parseOptionalID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]map[string]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, map[string]string{
				"field": fe.Field(),
				"rule":  fe.Tag(),
				"param": fe.Param(),
			})
		}
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Request validation failed", details)
	}
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
}

// likeFilter adds a case-insensitive substring match on column
func likeFilter(db *gorm.DB, column, q string) *gorm.DB {
	if strings.EqualFold(db.Name(), "postgres") { //nolint:staticcheck
		return db.Where(column+" ILIKE ?", "%"+q+"%")
	}
	return db.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(q)+"%")
}

// nameOrder maps the sort/order query params onto a whitelisted column, defaulting to name DESC
func nameOrder(c echo.Context, allowed ...string) string {
	col := "name"
	sortField := strings.TrimSpace(c.QueryParam("sort"))
	for _, a := range allowed {
		if a == sortField {
			col = a
		}
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" {
		order = "DESC"
	}
	return col + " " + order
}

// loadByID reads the row with id into dest. When it is missing or the query fails
// the error response is already written and found is false.
func loadByID(c echo.Context, dest interface{}, id int64, notFoundCode, label string) (found bool, resp error) {
	err := GetDB(c).Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fail(c, http.StatusNotFound, notFoundCode, label+" not found", nil)
	} else if err != nil {
		return false, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query "+strings.ToLower(label), err.Error())
	}
	return true, nil
}

// rowExists reports whether model has a row matching the condition
func rowExists(db *gorm.DB, model interface{}, query interface{}, args ...interface{}) (bool, error) {
	var n int64
	err := db.Model(model).Where(query, args...).Count(&n).Error
	return n > 0, err
}

func currentUser(c echo.Context) *webserver.JwtClaims {
	claims, _ := webserver.CurrentClaims(c)
	if claims == nil {
		return &webserver.JwtClaims{}
	}
	return claims
}

func isAdmin(c echo.Context) bool {
	return currentUser(c).Type == domain.UserTypeAdmin
}

// canManageShop allows admins, the owner of the shop and anyone for unowned shops
func canManageShop(c echo.Context, shop *domain.Shop) bool {
	if isAdmin(c) || shop.UserId == nil {
		return true
	}
	return *shop.UserId == currentUser(c).Uid
}

// authorizeProductInfo loads a listing and checks the caller may manage its shop
func authorizeProductInfo(c echo.Context, id int64) (*domain.ProductInfo, error) {
	var pi domain.ProductInfo
	if found, resp := loadByID(c, &pi, id, "PRODUCT_INFO_NOT_FOUND", "Product info"); !found {
		return nil, resp
	}
	var shop domain.Shop
	if found, resp := loadByID(c, &shop, pi.ShopId, "SHOP_NOT_FOUND", "Shop"); !found {
		return nil, resp
	}
	if !canManageShop(c, &shop) {
		return nil, fail(c, http.StatusForbidden, "FORBIDDEN", "Shop belongs to another user", nil)
	}
	return &pi, nil
}

func orderingService(c echo.Context) *ordering.Service {
	return ordering.NewService(GetDB(c), GetAppContext(c).EventBus()).
		WithDefer(func(fn func()) { webserver.AfterCommit(c, fn) })
}

func failOrdering(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ordering.ErrCartNotFound):
		return fail(c, http.StatusBadRequest, "NO_CART", "There is no cart for the current user", nil)
	case errors.Is(err, ordering.ErrEmptyCart):
		return fail(c, http.StatusBadRequest, "EMPTY_CART", "Cart has no items", nil)
	case errors.Is(err, ordering.ErrInvalidQuantity):
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid quantity", nil)
	case errors.Is(err, ordering.ErrShopInactive):
		return fail(c, http.StatusBadRequest, "SHOP_INACTIVE", "Shop is not accepting orders", nil)
	case errors.Is(err, ordering.ErrInvalidTransition):
		return fail(c, http.StatusBadRequest, "INVALID_STATE", "Order state transition not allowed", err.Error())
	case errors.Is(err, ordering.ErrItemExists):
		return fail(c, http.StatusConflict, "ITEM_EXISTS", "Product is already in the cart", nil)
	case errors.Is(err, ordering.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "ITEM_NOT_FOUND", "Cart item not found", nil)
	case errors.Is(err, ordering.ErrProductInfoNotFound):
		return fail(c, http.StatusNotFound, "PRODUCT_INFO_NOT_FOUND", "Product info not found", nil)
	case errors.Is(err, ordering.ErrContactNotFound):
		return fail(c, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", nil)
	case errors.Is(err, ordering.ErrOrderNotFound):
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	}
	zap.L().Error("order operation failed", zap.Error(err), zap.String("namespace", "adminapi"))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Order operation failed", err.Error())
}

// logOperation records an operator action in the request transaction
func logOperation(c echo.Context, operator, action, desc string) {
	if operator == "" {
		operator = currentUser(c).Username
	}
	err := GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   operator,
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	}).Error
	if err != nil {
		zap.L().Warn("write operation log failed", zap.Error(err), zap.String("namespace", "adminapi"))
	}
}
