package domain

import "time"

// Order states. An order in the cart state is the user's shopping cart.
const (
	OrderStateCart      = "cart"
	OrderStateNew       = "new"
	OrderStateConfirmed = "confirmed"
	OrderStateAssembled = "assembled"
	OrderStateSent      = "sent"
	OrderStateDelivered = "delivered"
	OrderStateCanceled  = "canceled"
)

var orderStateTransitions = map[string][]string{
	OrderStateCart:      {OrderStateNew},
	OrderStateNew:       {OrderStateConfirmed, OrderStateCanceled},
	OrderStateConfirmed: {OrderStateAssembled, OrderStateCanceled},
	OrderStateAssembled: {OrderStateSent, OrderStateCanceled},
	OrderStateSent:      {OrderStateDelivered},
}

// IsValidOrderState reports whether s is a known order state
func IsValidOrderState(s string) bool {
	switch s {
	case OrderStateCart, OrderStateNew, OrderStateConfirmed, OrderStateAssembled,
		OrderStateSent, OrderStateDelivered, OrderStateCanceled:
		return true
	}
	return false
}

// CanTransitOrderState reports whether an order may move from one state to another
func CanTransitOrderState(from, to string) bool {
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID        int64     `json:"id,string" form:"id"`
	UserId    int64     `gorm:"index;uniqueIndex:idx_orders_user_cart,where:state = 'cart'" json:"user_id,string" form:"user_id"`
	ContactId *int64    `json:"contact_id,omitempty" form:"contact_id"`
	State     string    `gorm:"size:15;index" json:"state" form:"state"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID            int64     `json:"id,string" form:"id"`
	OrderId       int64     `gorm:"uniqueIndex:idx_order_product_info" json:"order_id,string" form:"order_id"`
	ProductInfoId int64     `gorm:"uniqueIndex:idx_order_product_info;index" json:"product_info_id,string" form:"product_info_id"`
	Quantity      int       `json:"quantity" form:"quantity"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName Specify table name
func (OrderItem) TableName() string {
	return "order_item"
}
