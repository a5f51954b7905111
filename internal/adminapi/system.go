package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/ordering"
	"github.com/talkincode/retailhub/internal/partnerimport"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/metrics"
)

func registerSystemRoutes() {
	webserver.ApiGET("/system/metrics/:name", getMetric, adminOnly)
	webserver.ApiGET("/system/summary", salesSummary, adminOnly)
	webserver.ApiGET("/system/oprlogs", listOprLogs, adminOnly)
}

func adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !isAdmin(c) {
			return fail(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required", nil)
		}
		return next(c)
	}
}

// getMetric returns the stored samples of a gauge or counter for the last N minutes
func getMetric(c echo.Context) error {
	name := c.Param("name")
	minutes := cast.ToInt(c.QueryParam("minutes"))
	if minutes <= 0 {
		minutes = 60
	}
	if minutes > 7*24*60 {
		minutes = 7 * 24 * 60
	}
	points, err := metrics.Query(name, time.Now().Add(-time.Duration(minutes)*time.Minute))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "METRICS_ERROR", "Failed to query metrics", err.Error())
	}
	result := map[string]interface{}{
		"name":   name,
		"points": points,
	}
	switch name {
	case ordering.MetricCheckoutTotal, partnerimport.MetricImportTotal:
		result["counter"] = metrics.Counter(name)
	}
	return ok(c, result)
}

type stateSummary struct {
	State  string          `json:"state"`
	Orders int64           `json:"orders"`
	Amount decimal.Decimal `json:"-"`
	Total  string          `json:"total"`
}

// salesSummary aggregates non-cart orders per state
func salesSummary(c echo.Context) error {
	var rows []stateSummary
	err := GetDB(c).Table("orders o").
		Select("o.state AS state, COUNT(DISTINCT o.id) AS orders, COALESCE(SUM(oi.quantity * pi.price), 0) AS amount").
		Joins("LEFT JOIN order_item oi ON oi.order_id = o.id").
		Joins("LEFT JOIN product_info pi ON pi.id = oi.product_info_id").
		Where("o.state <> ?", domain.OrderStateCart).
		Group("o.state").
		Order("o.state").
		Scan(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query sales summary", err.Error())
	}
	for i := range rows {
		rows[i].Total = rows[i].Amount.Round(2).StringFixed(2)
	}
	return ok(c, rows)
}

func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.SysOprLog{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeFilter(db, "opt_desc", q)
	}
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("opt_action = ?", action)
	}
	if name := strings.TrimSpace(c.QueryParam("operator")); name != "" {
		db = db.Where("opr_name = ?", name)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}
	var logs []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page-1)*pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}
	return paged(c, logs, total, page, pageSize)
}
