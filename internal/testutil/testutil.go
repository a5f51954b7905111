// Package testutil provides an in-memory database and catalog fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/pkg/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with all tables migrated.
// The connection pool is limited to one connection so the shared-cache database
// lives exactly as long as the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:retailhub_%d?mode=memory&cache=shared", common.UUIDint64())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

// CreateUser inserts an enabled user of the given type; the password is "secret".
func CreateUser(t testing.TB, db *gorm.DB, username, userType string) *domain.SysUser {
	t.Helper()
	hash, err := common.HashPassword("secret")
	require.NoError(t, err)
	u := &domain.SysUser{
		ID:        common.UUIDint64(),
		Email:     username + "@example.com",
		Username:  username,
		Password:  hash,
		Type:      userType,
		Status:    common.ENABLED,
		LastLogin: time.Now(),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateShop inserts an active shop, optionally owned by ownerID.
func CreateShop(t testing.TB, db *gorm.DB, name string, ownerID *int64) *domain.Shop {
	t.Helper()
	s := &domain.Shop{
		ID:     common.UUIDint64(),
		Name:   name,
		Url:    "https://" + name + ".example.com",
		UserId: ownerID,
		State:  true,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}

func CreateCategory(t testing.TB, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{ID: common.UUIDint64(), Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateProduct(t testing.TB, db *gorm.DB, name string, categoryID int64) *domain.Product {
	t.Helper()
	p := &domain.Product{ID: common.UUIDint64(), Name: name, CategoryId: categoryID}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateProductInfo lists product in shop at price with the given stock.
func CreateProductInfo(t testing.TB, db *gorm.DB, productID, shopID int64, price string, quantity int) *domain.ProductInfo {
	t.Helper()
	pi := &domain.ProductInfo{
		ID:        common.UUIDint64(),
		ProductId: productID,
		ShopId:    shopID,
		Name:      "listing",
		Quantity:  quantity,
		Price:     decimal.RequireFromString(price),
		PriceRrc:  decimal.RequireFromString(price),
	}
	require.NoError(t, db.Create(pi).Error)
	return pi
}

// Listing creates shop-independent catalog rows and one listing of a fresh product in shop.
func Listing(t testing.TB, db *gorm.DB, shopID int64, productName, price string) *domain.ProductInfo {
	t.Helper()
	cat := CreateCategory(t, db, "cat-"+productName)
	p := CreateProduct(t, db, productName, cat.ID)
	return CreateProductInfo(t, db, p.ID, shopID, price, 10)
}

// Count returns the number of rows of model matching the optional condition.
func Count(t testing.TB, db *gorm.DB, model interface{}, query ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
