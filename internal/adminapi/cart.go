package adminapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/talkincode/retailhub/internal/webserver"
)

func registerCartRoutes() {
	webserver.ApiGET("/cart", getCart)
	webserver.ApiPOST("/cart/items", addCartItem)
	webserver.ApiPUT("/cart/items/:id", updateCartItem)
	webserver.ApiDELETE("/cart/items/:id", removeCartItem)
	webserver.ApiPOST("/cart/checkout", checkoutCart)
}

type cartItemPayload struct {
	ProductInfoId int64 `json:"product_info_id,string" validate:"required"`
	Quantity      int   `json:"quantity" validate:"min=1"`
}

type cartQuantityPayload struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

type checkoutPayload struct {
	ContactId int64 `json:"contact_id,string"`
}

func getCart(c echo.Context) error {
	view, err := orderingService(c).GetCart(c.Request().Context(), currentUser(c).Uid)
	if err != nil {
		return failOrdering(c, err)
	}
	return ok(c, view)
}

func addCartItem(c echo.Context) error {
	var payload cartItemPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	view, err := orderingService(c).AddItem(c.Request().Context(), currentUser(c).Uid, payload.ProductInfoId, payload.Quantity)
	if err != nil {
		return failOrdering(c, err)
	}
	return created(c, view)
}

func updateCartItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	var payload cartQuantityPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse cart item", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	view, err := orderingService(c).UpdateItem(c.Request().Context(), currentUser(c).Uid, id, *payload.Quantity)
	if err != nil {
		return failOrdering(c, err)
	}
	return ok(c, view)
}

func removeCartItem(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid item ID", nil)
	}
	view, err := orderingService(c).RemoveItem(c.Request().Context(), currentUser(c).Uid, id)
	if err != nil {
		return failOrdering(c, err)
	}
	return ok(c, view)
}

func checkoutCart(c echo.Context) error {
	var payload checkoutPayload
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&payload); err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse checkout request", err.Error())
		}
	}
	var contactID *int64
	if payload.ContactId != 0 {
		contactID = &payload.ContactId
	}

	user := currentUser(c)
	view, err := orderingService(c).Checkout(c.Request().Context(), user.Uid, contactID)
	if err != nil {
		return failOrdering(c, err)
	}
	logOperation(c, user.Username, "checkout", fmt.Sprintf("order %d total %s", view.ID, view.Total))
	return ok(c, view)
}
