package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/testutil"
	"github.com/talkincode/retailhub/pkg/common"
	"gorm.io/gorm"
)

type fixture struct {
	shop  *domain.Shop
	other *domain.Shop
	cat   *domain.Category
	prod  *domain.Product
	info  *domain.ProductInfo
	kept  *domain.ProductInfo
	param *domain.Parameter
	order *domain.Order
}

func seed(t *testing.T, db *gorm.DB) fixture {
	f := fixture{}
	f.shop = testutil.CreateShop(t, db, "alpha", nil)
	f.other = testutil.CreateShop(t, db, "beta", nil)
	f.cat = testutil.CreateCategory(t, db, "phones")
	f.prod = testutil.CreateProduct(t, db, "phone x", f.cat.ID)
	f.info = testutil.CreateProductInfo(t, db, f.prod.ID, f.shop.ID, "100.00", 5)
	f.kept = testutil.CreateProductInfo(t, db, f.prod.ID, f.other.ID, "90.00", 5)
	require.NoError(t, db.Create(&domain.ShopCategory{ID: common.UUIDint64(), ShopId: f.shop.ID, CategoryId: f.cat.ID}).Error)

	f.param = &domain.Parameter{ID: common.UUIDint64(), Name: "Color"}
	require.NoError(t, db.Create(f.param).Error)
	for _, pi := range []*domain.ProductInfo{f.info, f.kept} {
		require.NoError(t, db.Create(&domain.ProductParameter{
			ID: common.UUIDint64(), ProductInfoId: pi.ID, ParameterId: f.param.ID, Value: "black",
		}).Error)
	}

	f.order = &domain.Order{ID: common.UUIDint64(), UserId: 1, State: domain.OrderStateCart}
	require.NoError(t, db.Create(f.order).Error)
	for _, pi := range []*domain.ProductInfo{f.info, f.kept} {
		require.NoError(t, db.Create(&domain.OrderItem{
			ID: common.UUIDint64(), OrderId: f.order.ID, ProductInfoId: pi.ID, Quantity: 1,
		}).Error)
	}
	return f
}

func TestDeleteShopCascades(t *testing.T) {
	db := testutil.NewDB(t)
	f := seed(t, db)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return DeleteShop(tx, f.shop.ID)
	}))

	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Shop{}, "id = ?", f.shop.ID))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductInfo{}, "shop_id = ?", f.shop.ID))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductParameter{}, "product_info_id = ?", f.info.ID))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.OrderItem{}, "product_info_id = ?", f.info.ID))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ShopCategory{}, "shop_id = ?", f.shop.ID))

	// the other shop's listing survives
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.ProductInfo{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.ProductParameter{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.OrderItem{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.Product{}))
}

func TestDeleteCategoryCascades(t *testing.T) {
	db := testutil.NewDB(t)
	f := seed(t, db)

	require.NoError(t, DeleteCategory(db, f.cat.ID))

	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Category{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Product{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductInfo{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductParameter{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.OrderItem{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ShopCategory{}))
	assert.EqualValues(t, 2, testutil.Count(t, db, &domain.Shop{}))
}

func TestDeleteProductInfoAndParameter(t *testing.T) {
	db := testutil.NewDB(t)
	f := seed(t, db)

	require.NoError(t, DeleteProductInfo(db, f.info.ID))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.ProductInfo{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.OrderItem{}))

	require.NoError(t, DeleteParameter(db, f.param.ID))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.ProductParameter{}))
	assert.EqualValues(t, 0, testutil.Count(t, db, &domain.Parameter{}))
}

func TestDeleteShopProductInfos(t *testing.T) {
	db := testutil.NewDB(t)
	f := seed(t, db)

	n, err := DeleteShopProductInfos(db, f.other.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.ProductInfo{}))
	assert.EqualValues(t, 1, testutil.Count(t, db, &domain.Shop{}, "id = ?", f.other.ID))
}

func TestDeleteMissingRows(t *testing.T) {
	db := testutil.NewDB(t)
	assert.ErrorIs(t, DeleteShop(db, 1), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, DeleteProduct(db, 1), gorm.ErrRecordNotFound)
	assert.ErrorIs(t, DeleteOrder(db, 1), gorm.ErrRecordNotFound)
}

func TestIsDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateCategory(t, db, "dup")
	err := db.Create(&domain.Category{ID: common.UUIDint64(), Name: "dup"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	assert.False(t, IsDuplicate(gorm.ErrRecordNotFound))
}
