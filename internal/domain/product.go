package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item shared by all shops
type Product struct {
	ID         int64     `json:"id,string" form:"id"`
	Name       string    `gorm:"size:80;uniqueIndex" json:"name" form:"name"`
	CategoryId int64     `gorm:"index" json:"category_id,string" form:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "product"
}

// ProductInfo is a shop specific listing (price/quantity) of a product
type ProductInfo struct {
	ID         int64           `json:"id,string" form:"id"`
	ProductId  int64           `gorm:"uniqueIndex:idx_product_shop" json:"product_id,string" form:"product_id"`
	ShopId     int64           `gorm:"uniqueIndex:idx_product_shop;index" json:"shop_id,string" form:"shop_id"`
	ExternalId int64           `json:"external_id" form:"external_id"` // id of the good in the partner price list
	Model      string          `gorm:"size:80" json:"model" form:"model"`
	Name       string          `gorm:"size:80" json:"name" form:"name"`
	Quantity   int             `json:"quantity" form:"quantity"`
	Price      decimal.Decimal `gorm:"type:decimal(20,2)" json:"price" form:"price"`
	PriceRrc   decimal.Decimal `gorm:"type:decimal(20,2)" json:"price_rrc" form:"price_rrc"` // recommended retail price
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (ProductInfo) TableName() string {
	return "product_info"
}

// Parameter is a named product property, e.g. "Color"
type Parameter struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:40;uniqueIndex" json:"name" form:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Parameter) TableName() string {
	return "parameter"
}

// ProductParameter is the value of a parameter for a product listing
type ProductParameter struct {
	ID            int64     `json:"id,string" form:"id"`
	ProductInfoId int64     `gorm:"uniqueIndex:idx_product_parameter" json:"product_info_id,string" form:"product_info_id"`
	ParameterId   int64     `gorm:"uniqueIndex:idx_product_parameter;index" json:"parameter_id,string" form:"parameter_id"`
	Value         string    `gorm:"size:100" json:"value" form:"value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName Specify table name
func (ProductParameter) TableName() string {
	return "product_parameter"
}
