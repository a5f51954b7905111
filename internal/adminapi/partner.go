package adminapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/partnerimport"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/metrics"
)

const maxDocumentSize = 16 << 20

func registerPartnerRoutes() {
	webserver.ApiPOST("/partner/update", importPriceList, shopUserOnly)
	webserver.ApiGET("/partner/state", getPartnerState, shopUserOnly)
	webserver.ApiPUT("/partner/state", updatePartnerState, shopUserOnly)
	webserver.ApiGET("/partner/orders", listPartnerOrders, shopUserOnly)
	webserver.ApiGET("/partner/export", exportPriceList, shopUserOnly)
}

func shopUserOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentUser(c).Type != domain.UserTypeShop {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "Only shop accounts may use partner operations", nil)
		}
		return next(c)
	}
}

// readDocument returns the uploaded file, or the raw request body when no file was sent
func readDocument(c echo.Context) ([]byte, error) {
	var r io.Reader = c.Request().Body
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, err
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("document exceeds %d bytes", maxDocumentSize)
	}
	return data, nil
}

func importPriceList(c echo.Context) error {
	data, err := readDocument(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read price list", err.Error())
	}
	doc, err := partnerimport.Parse(data)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid price list", err.Error())
	}

	user := currentUser(c)
	result, err := partnerimport.Import(c.Request().Context(), GetDB(c), user.Uid, doc)
	switch {
	case err == nil:
	case errors.Is(err, partnerimport.ErrInvalidDocument):
		return fail(c, http.StatusBadRequest, "INVALID_DOCUMENT", "Invalid price list", err.Error())
	case errors.Is(err, partnerimport.ErrShopOwned):
		return fail(c, http.StatusConflict, "SHOP_OWNED", "Shop belongs to another user", nil)
	case catalog.IsDuplicate(err):
		return fail(c, http.StatusConflict, "SHOP_EXISTS", "Shop name or url already in use", err.Error())
	default:
		zap.L().Error("import price list failed", zap.Error(err), zap.Int64("user_id", user.Uid), zap.String("namespace", "partner"))
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to import price list", err.Error())
	}

	webserver.AfterCommit(c, func() { metrics.Incr(partnerimport.MetricImportTotal) })
	logOperation(c, user.Username, "partner_update",
		fmt.Sprintf("shop %d: %d goods, %d removed", result.ShopId, result.Goods, result.Removed))
	return ok(c, result)
}

func requireOwnShop(c echo.Context) (*domain.Shop, error) {
	shop, err := ownShop(c)
	if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query shop", err.Error())
	}
	if shop == nil {
		return nil, fail(c, http.StatusNotFound, "SHOP_NOT_FOUND", "Upload a price list first", nil)
	}
	return shop, nil
}

func getPartnerState(c echo.Context) error {
	shop, err := requireOwnShop(c)
	if shop == nil {
		return err
	}
	return ok(c, map[string]interface{}{"shop_id": fmt.Sprint(shop.ID), "name": shop.Name, "state": shop.State})
}

func updatePartnerState(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse state", nil)
	}
	raw, exists := payload["state"]
	if !exists {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "state is required", nil)
	}
	state, err := cast.ToBoolE(raw)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "state must be a boolean", err.Error())
	}

	shop, err := requireOwnShop(c)
	if shop == nil {
		return err
	}
	if err := GetDB(c).Model(shop).Updates(map[string]interface{}{"state": state, "updated_at": time.Now()}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update shop state", err.Error())
	}
	logOperation(c, "", "partner_state", fmt.Sprintf("shop %d state %t", shop.ID, state))
	return ok(c, map[string]interface{}{"shop_id": fmt.Sprint(shop.ID), "name": shop.Name, "state": state})
}

func listPartnerOrders(c echo.Context) error {
	shop, err := requireOwnShop(c)
	if shop == nil {
		return err
	}
	filter, err := parseOrderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
	filter.ShopId = shop.ID

	views, total, err := orderingService(c).ListOrders(c.Request().Context(), filter)
	if err != nil {
		return failOrdering(c, err)
	}
	return paged(c, views, total, filter.Page, filter.PageSize)
}

func exportPriceList(c echo.Context) error {
	shop, err := requireOwnShop(c)
	if shop == nil {
		return err
	}
	doc, err := partnerimport.Export(c.Request().Context(), GetDB(c), shop.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to export price list", err.Error())
	}

	var (
		data        []byte
		contentType string
		ext         string
	)
	switch strings.ToLower(c.QueryParam("format")) {
	case "", "yaml", "yml":
		data, err = partnerimport.MarshalYAML(doc)
		contentType, ext = "application/x-yaml", "yaml"
	case "csv":
		data, err = partnerimport.MarshalCSV(doc)
		contentType, ext = "text/csv", "csv"
	default:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be csv or yaml", nil)
	}
	if err != nil {
		return fail(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to encode price list", err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=pricelist-%d.%s", shop.ID, ext))
	return c.Blob(http.StatusOK, contentType, data)
}
