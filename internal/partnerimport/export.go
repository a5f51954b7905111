package partnerimport

import (
	"context"

	"github.com/gocarina/gocsv"
	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/retailhub/internal/domain"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// ExportRow is one line of the CSV price list
type ExportRow struct {
	ID       int64  `csv:"id"`
	Category string `csv:"category"`
	Model    string `csv:"model"`
	Name     string `csv:"name"`
	Price    string `csv:"price"`
	PriceRrc string `csv:"price_rrc"`
	Quantity int    `csv:"quantity"`
}

type exportInfo struct {
	domain.ProductInfo
	CategoryId   int64
	CategoryName string
}

// Export builds a document with the current price list of shopID. The result can be imported again.
func Export(ctx context.Context, db *gorm.DB, shopID int64) (*Document, error) {
	db = db.WithContext(ctx)
	var shop domain.Shop
	if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
		return nil, err
	}

	var infos []exportInfo
	err := db.Table("product_info pi").
		Select("pi.*, c.id AS category_id, c.name AS category_name").
		Joins("JOIN product p ON p.id = pi.product_id").
		Joins("JOIN category c ON c.id = p.category_id").
		Where("pi.shop_id = ?", shopID).
		Order("pi.name").
		Scan(&infos).Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query price list")
	}

	infoIDs := make([]int64, 0, len(infos))
	for _, pi := range infos {
		infoIDs = append(infoIDs, pi.ID)
	}
	var params []struct {
		ProductInfoId int64
		Name          string
		Value         string
	}
	if len(infoIDs) > 0 {
		err = db.Table("product_parameter pp").
			Select("pp.product_info_id, pa.name, pp.value").
			Joins("JOIN parameter pa ON pa.id = pp.parameter_id").
			Where("pp.product_info_id IN ?", infoIDs).
			Scan(&params).Error
		if err != nil {
			return nil, pkgerrors.Wrap(err, "query parameters")
		}
	}
	paramsByInfo := make(map[int64]map[string]interface{})
	for _, p := range params {
		if paramsByInfo[p.ProductInfoId] == nil {
			paramsByInfo[p.ProductInfoId] = make(map[string]interface{})
		}
		paramsByInfo[p.ProductInfoId][p.Name] = p.Value
	}

	doc := &Document{Shop: shop.Name, Url: shop.Url, Categories: []Category{}, Goods: []Good{}}
	seen := make(map[int64]bool)
	for _, pi := range infos {
		if !seen[pi.CategoryId] {
			seen[pi.CategoryId] = true
			doc.Categories = append(doc.Categories, Category{ID: pi.CategoryId, Name: pi.CategoryName})
		}
		id := pi.ExternalId
		if id == 0 {
			id = pi.ID
		}
		doc.Goods = append(doc.Goods, Good{
			ID:         id,
			Category:   pi.CategoryId,
			Model:      pi.Model,
			Name:       pi.Name,
			Price:      pi.Price.StringFixed(2),
			PriceRrc:   pi.PriceRrc.StringFixed(2),
			Quantity:   pi.Quantity,
			Parameters: paramsByInfo[pi.ID],
		})
	}
	return doc, nil
}

// MarshalYAML renders the document in the import format
func MarshalYAML(doc *Document) ([]byte, error) {
	return yaml.Marshal(doc)
}

// MarshalCSV renders the goods of the document as CSV
func MarshalCSV(doc *Document) ([]byte, error) {
	names := make(map[int64]string, len(doc.Categories))
	for _, c := range doc.Categories {
		names[c.ID] = c.Name
	}
	rows := make([]*ExportRow, 0, len(doc.Goods))
	for _, g := range doc.Goods {
		rows = append(rows, &ExportRow{
			ID:       g.ID,
			Category: names[g.Category],
			Model:    g.Model,
			Name:     g.Name,
			Price:    g.Price,
			PriceRrc: g.PriceRrc,
			Quantity: g.Quantity,
		})
	}
	return gocsv.MarshalBytes(&rows)
}
