package domain

import "time"

// Shop is a partner publishing a price list. A shop may be owned by one shop user.
type Shop struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:50;uniqueIndex" json:"name" form:"name"`
	Url       string    `gorm:"size:200;uniqueIndex" json:"url" form:"url"`
	UserId    *int64    `gorm:"uniqueIndex" json:"user_id,omitempty" form:"user_id"`
	State     bool      `gorm:"not null" json:"state" form:"state"` // accepting orders
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Shop) TableName() string {
	return "shop"
}

// Category groups products; a category is offered by many shops
type Category struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:40;uniqueIndex" json:"name" form:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}

// ShopCategory links shops and categories
type ShopCategory struct {
	ID         int64 `json:"id,string"`
	ShopId     int64 `gorm:"uniqueIndex:idx_shop_category" json:"shop_id,string"`
	CategoryId int64 `gorm:"uniqueIndex:idx_shop_category;index" json:"category_id,string"`
}

// TableName Specify table name
func (ShopCategory) TableName() string {
	return "shop_category"
}
