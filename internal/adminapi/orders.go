package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/ordering"
	"github.com/talkincode/retailhub/internal/webserver"
)

func registerOrderRoutes() {
	webserver.ApiGET("/orders", listOrders)
	webserver.ApiGET("/orders/:id", getOrder)
	webserver.ApiPUT("/orders/:id/state", updateOrderState)
}

type orderStatePayload struct {
	State string `json:"state" validate:"required"`
}

// parseOrderFilter reads the state/from/to query params shared by the order lists
func parseOrderFilter(c echo.Context) (ordering.OrderFilter, error) {
	var filter ordering.OrderFilter
	filter.Page, filter.PageSize = parsePagination(c)

	if state := strings.TrimSpace(c.QueryParam("state")); state != "" {
		if !domain.IsValidOrderState(state) || state == domain.OrderStateCart {
			return filter, fmt.Errorf("unknown order state %q", state)
		}
		filter.State = state
	}
	if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
		from, err := dateparse.ParseLocal(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid from date %q", raw)
		}
		filter.From = from
	}
	if raw := strings.TrimSpace(c.QueryParam("to")); raw != "" {
		to, err := dateparse.ParseLocal(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid to date %q", raw)
		}
		// a bare date includes the whole day
		if to.Equal(time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())) {
			to = to.AddDate(0, 0, 1)
		}
		filter.To = to
	}
	return filter, nil
}

func listOrders(c echo.Context) error {
	filter, err := parseOrderFilter(c)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	}
	filter.UserId = currentUser(c).Uid
	if isAdmin(c) {
		uid, err := parseOptionalID(c.QueryParam("user_id"))
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid user_id", nil)
		}
		filter.UserId = uid
	}

	views, total, err := orderingService(c).ListOrders(c.Request().Context(), filter)
	if err != nil {
		return failOrdering(c, err)
	}
	return paged(c, views, total, filter.Page, filter.PageSize)
}

// orderAccess reports whether the caller may see an order and whether they act for a shop in it
func orderAccess(c echo.Context, svc *ordering.Service, order *ordering.OrderView) (visible, asShop bool, err error) {
	user := currentUser(c)
	if user.Type == domain.UserTypeAdmin {
		return true, true, nil
	}
	if user.Type == domain.UserTypeShop {
		shop, err := ownShop(c)
		if err != nil {
			return false, false, err
		}
		if shop != nil {
			has, err := svc.OrderHasShop(c.Request().Context(), order.ID, shop.ID)
			if err != nil {
				return false, false, err
			}
			if has {
				return true, true, nil
			}
		}
	}
	return order.UserId == user.Uid, false, nil
}

func getOrder(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	svc := orderingService(c)
	view, err := svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return failOrdering(c, err)
	}
	visible, _, err := orderAccess(c, svc, view)
	if err != nil {
		return failOrdering(c, err)
	}
	if !visible {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	}
	return ok(c, view)
}

func updateOrderState(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
	}
	var payload orderStatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order state", nil)
	}
	payload.State = strings.TrimSpace(payload.State)
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	if !domain.IsValidOrderState(payload.State) {
		return fail(c, http.StatusBadRequest, "INVALID_STATE", "Unknown order state", payload.State)
	}

	svc := orderingService(c)
	view, err := svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return failOrdering(c, err)
	}
	visible, asShop, err := orderAccess(c, svc, view)
	if err != nil {
		return failOrdering(c, err)
	}
	if !visible {
		return fail(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	}
	// buyers may only withdraw an order nobody has confirmed yet
	if !asShop && !(payload.State == domain.OrderStateCanceled && view.State == domain.OrderStateNew) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to change this order", nil)
	}

	updated, err := svc.UpdateState(c.Request().Context(), id, payload.State)
	if err != nil {
		return failOrdering(c, err)
	}
	logOperation(c, "", "order_state", fmt.Sprintf("order %d %s -> %s", id, view.State, updated.State))
	return ok(c, updated)
}

// ownShop returns the shop owned by the current user, or nil when there is none
func ownShop(c echo.Context) (*domain.Shop, error) {
	var shop domain.Shop
	err := GetDB(c).Where("user_id = ?", currentUser(c).Uid).First(&shop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shop, nil
}
