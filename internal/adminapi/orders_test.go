package adminapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/testutil"
)

func addToCart(t *testing.T, token string, pi *domain.ProductInfo, quantity int) map[string]interface{} {
	t.Helper()
	body := fmt.Sprintf(`{"product_info_id":"%d","quantity":%d}`, pi.ID, quantity)
	rec := call(http.MethodPost, "/api/v1/cart/items", body, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return dataOf(t, rec)
}

func TestCartCheckoutScenario(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	buyer := testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer)
	token := tokenFor(t, buyer)
	shop := testutil.CreateShop(t, db, "theta", nil)
	phone := testutil.Listing(t, db, shop.ID, "phone", "100.00")
	cable := testutil.Listing(t, db, shop.ID, "cable", "50.00")

	rec := call(http.MethodGet, "/api/v1/cart", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0.00", dataOf(t, rec)["total"])

	cart := addToCart(t, token, phone, 2)
	assert.Equal(t, "200.00", cart["total"])

	cart = addToCart(t, token, cable, 1)
	assert.Equal(t, "250.00", cart["total"])
	items, _ := cart["items"].([]interface{})
	require.Len(t, items, 2)

	rec = call(http.MethodPost, "/api/v1/cart/items", fmt.Sprintf(`{"product_info_id":"%d","quantity":1}`, phone.ID), token)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ITEM_EXISTS", errorCode(t, rec))

	rec = call(http.MethodPost, "/api/v1/cart/checkout", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	order := dataOf(t, rec)
	assert.Equal(t, domain.OrderStateNew, order["state"])
	assert.Equal(t, "250.00", order["total"])

	rec = call(http.MethodPost, "/api/v1/cart/checkout", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_CART", errorCode(t, rec))

	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.Order{}, "user_id = ? AND state = ?", buyer.ID, domain.OrderStateNew))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Order{}, "state = ?", domain.OrderStateCart))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.SysOprLog{}, "opt_action = ?", "checkout"))

	rec = call(http.MethodGet, "/api/v1/orders/"+order["id"].(string), "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "250.00", dataOf(t, rec)["total"])
}

func TestEmptyCartCheckout(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	token := tokenFor(t, testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer))
	shop := testutil.CreateShop(t, db, "iota", nil)
	pi := testutil.Listing(t, db, shop.ID, "mouse", "20.00")

	rec := call(http.MethodPost, "/api/v1/cart/checkout", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "NO_CART", errorCode(t, rec))

	cart := addToCart(t, token, pi, 1)
	itemID := cart["items"].([]interface{})[0].(map[string]interface{})["id"].(string)

	rec = call(http.MethodPut, "/api/v1/cart/items/"+itemID, `{"quantity":3}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "60.00", dataOf(t, rec)["total"])

	rec = call(http.MethodPut, "/api/v1/cart/items/"+itemID, `{"quantity":0}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0.00", dataOf(t, rec)["total"])

	rec = call(http.MethodPost, "/api/v1/cart/checkout", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "EMPTY_CART", errorCode(t, rec))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.Order{}, "state = ?", domain.OrderStateCart))
}

func TestCartRejectsBadItems(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	token := tokenFor(t, testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer))
	shop := testutil.CreateShop(t, db, "kappa", nil)
	pi := testutil.Listing(t, db, shop.ID, "keyboard", "45.00")

	rec := call(http.MethodPost, "/api/v1/cart/items", fmt.Sprintf(`{"product_info_id":"%d","quantity":0}`, pi.ID), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodPost, "/api/v1/cart/items", `{"product_info_id":"12345","quantity":1}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PRODUCT_INFO_NOT_FOUND", errorCode(t, rec))

	require.NoError(t, db.Model(shop).Update("state", false).Error)
	rec = call(http.MethodPost, "/api/v1/cart/items", fmt.Sprintf(`{"product_info_id":"%d","quantity":1}`, pi.ID), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SHOP_INACTIVE", errorCode(t, rec))

	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.OrderItem{}))
}

func TestCheckoutWithContact(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	buyer := testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer)
	token := tokenFor(t, buyer)
	stranger := tokenFor(t, testutil.CreateUser(t, db, "eve", domain.UserTypeBuyer))
	shop := testutil.CreateShop(t, db, "lambda", nil)
	pi := testutil.Listing(t, db, shop.ID, "monitor", "150.00")

	rec := call(http.MethodPost, "/api/v1/user/contacts", `{"city":"Moscow","street":"Tverskaya"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodPost, "/api/v1/user/contacts", `{"city":"Moscow","street":"Tverskaya","house":"7","phone":"+79990000000"}`, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	contactID := dataOf(t, rec)["id"].(string)

	rec = call(http.MethodGet, "/api/v1/user/contacts/"+contactID, "", stranger)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(http.MethodPut, "/api/v1/user/contacts/"+contactID, `{"apartment":"12"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12", dataOf(t, rec)["apartment"])
	assert.Equal(t, "Moscow", dataOf(t, rec)["city"])

	addToCart(t, token, pi, 1)
	rec = call(http.MethodPost, "/api/v1/cart/checkout", `{"contact_id":"42"}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CONTACT_NOT_FOUND", errorCode(t, rec))

	rec = call(http.MethodPost, "/api/v1/cart/checkout", fmt.Sprintf(`{"contact_id":"%s"}`, contactID), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.Order{}, "contact_id IS NOT NULL AND state = ?", domain.OrderStateNew))

	rec = call(http.MethodDelete, "/api/v1/user/contacts/"+contactID, "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Order{}, "contact_id IS NOT NULL"))
}

func TestOrderStateChanges(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	buyer := testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer)
	buyerToken := tokenFor(t, buyer)
	seller := testutil.CreateUser(t, db, "seller", domain.UserTypeShop)
	sellerToken := tokenFor(t, seller)
	outsider := tokenFor(t, testutil.CreateUser(t, db, "outsider", domain.UserTypeShop))
	shop := testutil.CreateShop(t, db, "mu", &seller.ID)
	testutil.CreateShop(t, db, "nu", nil)
	pi := testutil.Listing(t, db, shop.ID, "speaker", "75.50")

	addToCart(t, buyerToken, pi, 2)
	rec := call(http.MethodPost, "/api/v1/cart/checkout", "", buyerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	path := "/api/v1/orders/" + dataOf(t, rec)["id"].(string)

	rec = call(http.MethodGet, path, "", outsider)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(http.MethodPut, path+"/state", `{"state":"confirmed"}`, buyerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(http.MethodPut, path+"/state", `{"state":"lost"}`, sellerToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))

	rec = call(http.MethodPut, path+"/state", `{"state":"confirmed"}`, sellerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStateConfirmed, dataOf(t, rec)["state"])

	rec = call(http.MethodPut, path+"/state", `{"state":"delivered"}`, sellerToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))

	// confirmed orders can no longer be withdrawn by the buyer
	rec = call(http.MethodPut, path+"/state", `{"state":"canceled"}`, buyerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(http.MethodGet, "/api/v1/partner/orders", "", sellerToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestBuyerCancelsNewOrder(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	token := tokenFor(t, testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer))
	shop := testutil.CreateShop(t, db, "xi", nil)
	pi := testutil.Listing(t, db, shop.ID, "charger", "30.00")

	addToCart(t, token, pi, 1)
	rec := call(http.MethodPost, "/api/v1/cart/checkout", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	path := "/api/v1/orders/" + dataOf(t, rec)["id"].(string) + "/state"

	rec = call(http.MethodPut, path, `{"state":"canceled"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderStateCanceled, dataOf(t, rec)["state"])
}

func TestListOrdersFilters(t *testing.T) {
	a := setupAPI(t)
	db := a.DB()
	token := tokenFor(t, testutil.CreateUser(t, db, "bob", domain.UserTypeBuyer))
	other := tokenFor(t, testutil.CreateUser(t, db, "eve", domain.UserTypeBuyer))
	admin := tokenFor(t, testutil.CreateUser(t, db, "root", domain.UserTypeAdmin))
	shop := testutil.CreateShop(t, db, "omicron", nil)
	pi := testutil.Listing(t, db, shop.ID, "router", "99.90")

	addToCart(t, token, pi, 1)
	require.Equal(t, http.StatusOK, call(http.MethodPost, "/api/v1/cart/checkout", "", token).Code)

	rec := call(http.MethodGet, "/api/v1/orders?from=2000-01-01", "", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = call(http.MethodGet, "/api/v1/orders?to=2000-01-01", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])

	rec = call(http.MethodGet, "/api/v1/orders?state=confirmed", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])

	rec = call(http.MethodGet, "/api/v1/orders?from=not-a-date", "", token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(http.MethodGet, "/api/v1/orders", "", other)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["total"])

	rec = call(http.MethodGet, "/api/v1/orders", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}
