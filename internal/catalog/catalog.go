// Package catalog removes catalog rows together with everything that depends on them.
// Relations are not enforced by foreign keys, so every delete cascades explicitly
// and must run inside the caller's transaction.
package catalog

import (
	"errors"

	"github.com/talkincode/retailhub/internal/domain"
	"gorm.io/gorm"
)

// IsDuplicate reports whether err is a unique index violation
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// DeleteShop removes a shop, its price list and its category links.
func DeleteShop(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.Shop{}, id); err != nil {
		return err
	}
	if err := deleteProductInfosWhere(tx, "shop_id = ?", id); err != nil {
		return err
	}
	if err := tx.Where("shop_id = ?", id).Delete(&domain.ShopCategory{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&domain.Shop{}).Error
}

// DeleteCategory removes a category, its products and their listings.
func DeleteCategory(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.Category{}, id); err != nil {
		return err
	}
	products := tx.Model(&domain.Product{}).Select("id").Where("category_id = ?", id)
	if err := deleteProductInfosWhere(tx, "product_id IN (?)", products); err != nil {
		return err
	}
	if err := tx.Where("category_id = ?", id).Delete(&domain.Product{}).Error; err != nil {
		return err
	}
	if err := tx.Where("category_id = ?", id).Delete(&domain.ShopCategory{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&domain.Category{}).Error
}

// DeleteProduct removes a product and all its listings.
func DeleteProduct(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.Product{}, id); err != nil {
		return err
	}
	if err := deleteProductInfosWhere(tx, "product_id = ?", id); err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&domain.Product{}).Error
}

// DeleteProductInfo removes a single listing with its parameter values and order lines.
func DeleteProductInfo(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.ProductInfo{}, id); err != nil {
		return err
	}
	return deleteProductInfosWhere(tx, "id = ?", id)
}

// DeleteShopProductInfos clears the whole price list of a shop and returns how many listings were removed.
func DeleteShopProductInfos(tx *gorm.DB, shopID int64) (int64, error) {
	var n int64
	if err := tx.Model(&domain.ProductInfo{}).Where("shop_id = ?", shopID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, deleteProductInfosWhere(tx, "shop_id = ?", shopID)
}

// DeleteParameter removes a parameter and its values.
func DeleteParameter(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.Parameter{}, id); err != nil {
		return err
	}
	if err := tx.Where("parameter_id = ?", id).Delete(&domain.ProductParameter{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&domain.Parameter{}).Error
}

// DeleteOrder removes an order and its lines.
func DeleteOrder(tx *gorm.DB, id int64) error {
	if err := mustExist(tx, &domain.Order{}, id); err != nil {
		return err
	}
	if err := tx.Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Where("id = ?", id).Delete(&domain.Order{}).Error
}

func deleteProductInfosWhere(tx *gorm.DB, query interface{}, args ...interface{}) error {
	infos := tx.Model(&domain.ProductInfo{}).Select("id").Where(query, args...)
	if err := tx.Where("product_info_id IN (?)", infos).Delete(&domain.ProductParameter{}).Error; err != nil {
		return err
	}
	infos = tx.Model(&domain.ProductInfo{}).Select("id").Where(query, args...)
	if err := tx.Where("product_info_id IN (?)", infos).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}
	return tx.Where(query, args...).Delete(&domain.ProductInfo{}).Error
}

func mustExist(tx *gorm.DB, model interface{}, id int64) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
