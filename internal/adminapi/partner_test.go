package adminapi

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/testutil"
)

const priceList = `
shop: Connected
url: https://connected.example.com
categories:
  - id: 224
    name: Smartphones
  - id: 15
    name: Accessories
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Apple iPhone XS Max 512GB
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Screen (inch)": 6.5
      Color: gold
  - id: 4216313
    category: 15
    model: case
    name: Leather case
    price: "19.99"
    quantity: 3
`

func uploadPriceList(body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/update", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/x-yaml")
	return send(req, token)
}

func TestPartnerRoutesRequireShopUser(t *testing.T) {
	a := setupAPI(t)
	buyer := tokenFor(t, testutil.CreateUser(t, a.DB(), "bob", domain.UserTypeBuyer))

	rec := uploadPriceList(priceList, buyer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = uploadPriceList(priceList, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.EqualValues(t, 0, testutil.Count(t, a.DB(), &domain.Shop{}))
}

func TestPartnerImportAndExport(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	seller := testutil.CreateUser(t, db, "seller", domain.UserTypeShop)
	token := tokenFor(t, seller)

	rec := call(http.MethodGet, "/api/v1/partner/state", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = uploadPriceList(priceList, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, dataOf(t, rec)["goods"])

	var shop domain.Shop
	require.NoError(t, db.Where("name = ?", "Connected").First(&shop).Error)
	require.NotNil(t, shop.UserId)
	assert.Equal(t, seller.ID, *shop.UserId)
	assert.EqualValues(t, 2, testutil.Count(t, db, &domain.ProductInfo{}, "shop_id = ?", shop.ID))
	assert.EqualValues(t, 2, testutil.Count(t, db, &domain.ProductParameter{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.SysOprLog{}, "opt_action = ?", "partner_update"))

	// unknown category: rejected, previous price list stays
	broken := strings.Replace(priceList, "category: 15", "category: 99", 1)
	rec = uploadPriceList(broken, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DOCUMENT", errorCode(t, rec))
	assert.EqualValues(t, 2, testutil.Count(t, db, &domain.ProductInfo{}, "shop_id = ?", shop.ID))

	rec = call(http.MethodPut, "/api/v1/partner/state", `{"state":"false"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = call(http.MethodGet, "/api/v1/partner/state", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, dataOf(t, rec)["state"])

	rec = call(http.MethodPut, "/api/v1/partner/state", `{"state":"maybe"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodGet, "/api/v1/partner/export?format=csv", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".csv")
	assert.Contains(t, rec.Body.String(), "Leather case")
	assert.Contains(t, rec.Body.String(), "19.99")

	rec = call(http.MethodGet, "/api/v1/partner/export", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()
	assert.Contains(t, exported, "shop: Connected")

	// the export is a valid price list
	rec = uploadPriceList(exported, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, testutil.Count(t, db, &domain.ProductInfo{}, "shop_id = ?", shop.ID))

	rec = call(http.MethodGet, "/api/v1/partner/export?format=xlsx", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartnerImportMultipart(t *testing.T) {
	a := setupAPI(t)
	token := tokenFor(t, testutil.CreateUser(t, a.DB(), "seller", domain.UserTypeShop))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "pricelist.yaml")
	require.NoError(t, err)
	_, err = part.Write([]byte(priceList))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/partner/update", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := send(req, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, testutil.Count(t, a.DB(), &domain.ProductInfo{}))
}

func TestPartnerImportShopOwnedByAnotherUser(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	owner := testutil.CreateUser(t, db, "owner", domain.UserTypeShop)
	testutil.CreateShop(t, db, "Connected", &owner.ID)
	token := tokenFor(t, testutil.CreateUser(t, db, "intruder", domain.UserTypeShop))

	rec := uploadPriceList(priceList, token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SHOP_OWNED", errorCode(t, rec))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductInfo{}))
}
