package partnerimport

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/talkincode/retailhub/internal/catalog"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const MetricImportTotal = "retailhub_partner_import_total"

// Result summarizes an import
type Result struct {
	ShopId     int64 `json:"shop_id,string"`
	Categories int   `json:"categories"`
	Goods      int   `json:"goods"`
	Removed    int64 `json:"removed"`
}

// Import replaces the caller's shop price list with doc. It must run inside a
// transaction: any error leaves the previous price list in place.
func Import(ctx context.Context, tx *gorm.DB, userID int64, doc *Document) (*Result, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	db := tx.WithContext(ctx)

	shop, err := claimShop(db, userID, doc)
	if err != nil {
		return nil, err
	}

	categoryIDs := make(map[int64]int64, len(doc.Categories))
	for _, c := range doc.Categories {
		id, err := upsertCategory(db, shop.ID, c.Name)
		if err != nil {
			return nil, err
		}
		categoryIDs[c.ID] = id
	}

	removed, err := catalog.DeleteShopProductInfos(db, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "clear price list")
	}

	parameterIDs := make(map[string]int64)
	for _, g := range doc.Goods {
		productID, err := upsertProduct(db, g.Name, categoryIDs[g.Category])
		if err != nil {
			return nil, err
		}
		price, _ := parsePrice(g.Price)
		priceRrc, _ := parsePrice(g.PriceRrc)
		info := domain.ProductInfo{
			ID:         common.UUIDint64(),
			ProductId:  productID,
			ShopId:     shop.ID,
			ExternalId: g.ID,
			Model:      g.Model,
			Name:       g.Name,
			Quantity:   g.Quantity,
			Price:      price,
			PriceRrc:   priceRrc,
		}
		if err := db.Create(&info).Error; err != nil {
			return nil, pkgerrors.Wrapf(err, "create product info %q", g.Name)
		}

		for _, name := range g.ParameterNames() {
			parameterID, ok := parameterIDs[name]
			if !ok {
				if parameterID, err = upsertParameter(db, name); err != nil {
					return nil, err
				}
				parameterIDs[name] = parameterID
			}
			if err := db.Create(&domain.ProductParameter{
				ID:            common.UUIDint64(),
				ProductInfoId: info.ID,
				ParameterId:   parameterID,
				Value:         cast.ToString(g.Parameters[name]),
			}).Error; err != nil {
				return nil, pkgerrors.Wrapf(err, "create parameter %q of %q", name, g.Name)
			}
		}
	}

	zap.L().Info("price list imported",
		zap.Int64("shop_id", shop.ID),
		zap.String("shop", shop.Name),
		zap.Int("goods", len(doc.Goods)),
		zap.Int64("removed", removed),
		zap.String("namespace", "partner"))

	return &Result{
		ShopId:     shop.ID,
		Categories: len(doc.Categories),
		Goods:      len(doc.Goods),
		Removed:    removed,
	}, nil
}

// claimShop finds the shop the document is for and makes sure userID owns it.
// A user owns at most one shop; an unowned shop of the same name is claimed.
func claimShop(db *gorm.DB, userID int64, doc *Document) (*domain.Shop, error) {
	var shop domain.Shop
	err := db.Where("user_id = ?", userID).First(&shop).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{}
		if shop.Name != doc.Shop {
			var n int64
			if err := db.Model(&domain.Shop{}).Where("name = ? AND id <> ?", doc.Shop, shop.ID).Count(&n).Error; err != nil {
				return nil, pkgerrors.Wrap(err, "query shop")
			}
			if n > 0 {
				return nil, pkgerrors.Wrapf(ErrShopOwned, "shop %q", doc.Shop)
			}
			updates["name"] = doc.Shop
		}
		if doc.Url != "" && doc.Url != shop.Url {
			updates["url"] = doc.Url
		}
		if len(updates) > 0 {
			if err := db.Model(&shop).Updates(updates).Error; err != nil {
				return nil, pkgerrors.Wrap(err, "update shop")
			}
		}
		return &shop, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(err, "query shop")
	}

	err = db.Where("name = ?", doc.Shop).First(&shop).Error
	switch {
	case err == nil:
		if shop.UserId != nil && *shop.UserId != userID {
			return nil, pkgerrors.Wrapf(ErrShopOwned, "shop %q", doc.Shop)
		}
		updates := map[string]interface{}{"user_id": userID}
		if doc.Url != "" {
			updates["url"] = doc.Url
		}
		if err := db.Model(&shop).Updates(updates).Error; err != nil {
			return nil, pkgerrors.Wrap(err, "claim shop")
		}
		return &shop, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(err, "query shop")
	}

	if doc.Url == "" {
		return nil, pkgerrors.Wrap(ErrInvalidDocument, "url is required for a new shop")
	}
	shop = domain.Shop{
		ID:     common.UUIDint64(),
		Name:   doc.Shop,
		Url:    doc.Url,
		UserId: &userID,
		State:  true,
	}
	if err := db.Create(&shop).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "create shop")
	}
	return &shop, nil
}

func upsertCategory(db *gorm.DB, shopID int64, name string) (int64, error) {
	var cat domain.Category
	err := db.Where("name = ?", name).First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cat = domain.Category{ID: common.UUIDint64(), Name: name}
		err = db.Create(&cat).Error
	}
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "upsert category %q", name)
	}

	var linked int64
	if err := db.Model(&domain.ShopCategory{}).Where("shop_id = ? AND category_id = ?", shopID, cat.ID).Count(&linked).Error; err != nil {
		return 0, pkgerrors.Wrapf(err, "query category link %q", name)
	}
	if linked == 0 {
		link := domain.ShopCategory{ID: common.UUIDint64(), ShopId: shopID, CategoryId: cat.ID}
		if err := db.Create(&link).Error; err != nil {
			return 0, pkgerrors.Wrapf(err, "link category %q", name)
		}
	}
	return cat.ID, nil
}

// upsertProduct returns the product named name, creating it in categoryID when missing.
// An existing product keeps its category.
func upsertProduct(db *gorm.DB, name string, categoryID int64) (int64, error) {
	var p domain.Product
	err := db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = domain.Product{ID: common.UUIDint64(), Name: name, CategoryId: categoryID}
		err = db.Create(&p).Error
	}
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "upsert product %q", name)
	}
	return p.ID, nil
}

func upsertParameter(db *gorm.DB, name string) (int64, error) {
	var p domain.Parameter
	err := db.Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = domain.Parameter{ID: common.UUIDint64(), Name: name}
		err = db.Create(&p).Error
	}
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "upsert parameter %q", name)
	}
	return p.ID, nil
}
