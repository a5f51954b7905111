package ordering

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/talkincode/retailhub/internal/domain"
	"gorm.io/gorm"
)

type ItemView struct {
	ID            int64  `json:"id,string"`
	ProductInfoId int64  `json:"product_info_id,string"`
	ProductId     int64  `json:"product_id,string"`
	ProductName   string `json:"product_name"`
	ShopId        int64  `json:"shop_id,string"`
	ShopName      string `json:"shop_name"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	Sum           string `json:"sum"`
}

type OrderView struct {
	ID        int64      `json:"id,string"`
	UserId    int64      `json:"user_id,string"`
	ContactId *int64     `json:"contact_id,omitempty"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	Items     []ItemView `json:"items"`
	Total     string     `json:"total"`
}

type itemRow struct {
	ID            int64
	OrderId       int64
	ProductInfoId int64
	ProductId     int64
	ProductName   string
	ShopId        int64
	ShopName      string
	Quantity      int
	Price         decimal.Decimal
}

// loadItems returns the priced lines of the given orders keyed by order id.
// A non-zero shopID keeps only that shop's lines.
func loadItems(db *gorm.DB, orderIDs []int64, shopID int64) (map[int64][]itemRow, error) {
	result := make(map[int64][]itemRow, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}
	q := db.Table("order_item oi").
		Select("oi.id, oi.order_id, oi.product_info_id, pi.product_id, p.name AS product_name, "+
			"pi.shop_id, s.name AS shop_name, oi.quantity, pi.price").
		Joins("JOIN product_info pi ON pi.id = oi.product_info_id").
		Joins("JOIN product p ON p.id = pi.product_id").
		Joins("JOIN shop s ON s.id = pi.shop_id").
		Where("oi.order_id IN ?", orderIDs)
	if shopID != 0 {
		q = q.Where("pi.shop_id = ?", shopID)
	}
	var rows []itemRow
	if err := q.Order("oi.created_at, oi.id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.OrderId] = append(result[r.OrderId], r)
	}
	return result, nil
}

func buildView(o domain.Order, rows []itemRow) OrderView {
	v := OrderView{
		ID:        o.ID,
		UserId:    o.UserId,
		ContactId: o.ContactId,
		State:     o.State,
		CreatedAt: o.CreatedAt,
		Items:     make([]ItemView, 0, len(rows)),
	}
	lines := make([]Line, 0, len(rows))
	for _, r := range rows {
		line := Line{Quantity: r.Quantity, Price: r.Price}
		lines = append(lines, line)
		v.Items = append(v.Items, ItemView{
			ID:            r.ID,
			ProductInfoId: r.ProductInfoId,
			ProductId:     r.ProductId,
			ProductName:   r.ProductName,
			ShopId:        r.ShopId,
			ShopName:      r.ShopName,
			Quantity:      r.Quantity,
			Price:         r.Price.StringFixed(2),
			Sum:           LineSum(line).StringFixed(2),
		})
	}
	v.Total = Total(lines).StringFixed(2)
	return v
}
