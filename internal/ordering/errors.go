package ordering

import "github.com/pkg/errors"

var (
	ErrCartNotFound        = errors.New("no cart for user")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrItemExists          = errors.New("product already in cart")
	ErrItemNotFound        = errors.New("cart item not found")
	ErrProductInfoNotFound = errors.New("product info not found")
	ErrShopInactive        = errors.New("shop is not accepting orders")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrContactNotFound     = errors.New("contact not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidTransition   = errors.New("invalid order state transition")
)
