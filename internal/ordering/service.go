package ordering

import (
	"context"
	"errors"
	"time"

	"github.com/asaskevich/EventBus"
	pkgerrors "github.com/pkg/errors"
	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/pkg/common"
	"github.com/talkincode/retailhub/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event topics published on the application bus
const (
	TopicCheckout     = "order:checkout"
	TopicStateChanged = "order:state"
)

const MetricCheckoutTotal = "retailhub_checkout_total"

// CheckoutEvent is published once a cart became a new order
type CheckoutEvent struct {
	OrderID   int64
	UserID    int64
	Email     string
	Username  string
	Total     string
	Items     []ItemView
	CreatedAt time.Time
}

// StateChangedEvent is published after an order moved to another state
type StateChangedEvent struct {
	OrderID  int64
	UserID   int64
	Email    string
	Username string
	From     string
	To       string
}

// OrderFilter selects non-cart orders
type OrderFilter struct {
	UserId   int64
	ShopId   int64
	State    string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Service implements the cart and order workflow on top of a gorm handle,
// usually the request transaction.
type Service struct {
	db      *gorm.DB
	bus     EventBus.Bus
	deferFn func(func())
}

func NewService(db *gorm.DB, bus EventBus.Bus) *Service {
	return &Service{db: db, bus: bus, deferFn: func(fn func()) { fn() }}
}

// WithDefer sets how post-commit work (events, counters) is scheduled
func (s *Service) WithDefer(fn func(func())) *Service {
	s.deferFn = fn
	return s
}

// GetCart returns the user's cart, or an empty cart view when none exists yet
func (s *Service) GetCart(ctx context.Context, userID int64) (*OrderView, error) {
	cart, err := s.findCart(s.db.WithContext(ctx), userID)
	if errors.Is(err, ErrCartNotFound) {
		return &OrderView{UserId: userID, State: domain.OrderStateCart, Items: []ItemView{}, Total: "0.00"}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.view(s.db.WithContext(ctx), cart, 0)
}

// AddItem puts a product listing into the user's cart, creating the cart on first use
func (s *Service) AddItem(ctx context.Context, userID, productInfoID int64, quantity int) (*OrderView, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	db := s.db.WithContext(ctx)

	var info domain.ProductInfo
	if err := db.Where("id = ?", productInfoID).First(&info).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductInfoNotFound
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "query product info")
	}
	var shop domain.Shop
	if err := db.Where("id = ?", info.ShopId).First(&shop).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "query shop")
	}
	if !shop.State {
		return nil, ErrShopInactive
	}

	cart, err := s.openCart(db, userID)
	if err != nil {
		return nil, err
	}

	var exists int64
	if err := db.Model(&domain.OrderItem{}).
		Where("order_id = ? AND product_info_id = ?", cart.ID, productInfoID).
		Count(&exists).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "query cart items")
	}
	if exists > 0 {
		return nil, ErrItemExists
	}
	item := domain.OrderItem{
		ID:            common.UUIDint64(),
		OrderId:       cart.ID,
		ProductInfoId: productInfoID,
		Quantity:      quantity,
	}
	if err := db.Create(&item).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrItemExists
	} else if err != nil {
		return nil, pkgerrors.Wrap(err, "create cart item")
	}
	return s.view(db, cart, 0)
}

// openCart returns the user's cart, creating it when there is none. At most one
// cart per user exists (idx_orders_user_cart), so a concurrent insert that loses
// the race reads the winner's row instead.
func (s *Service) openCart(db *gorm.DB, userID int64) (*domain.Order, error) {
	cart, err := s.findCart(db, userID)
	if !errors.Is(err, ErrCartNotFound) {
		return cart, err
	}
	cart = &domain.Order{ID: common.UUIDint64(), UserId: userID, State: domain.OrderStateCart}
	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(cart).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return s.findCart(db, userID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create cart")
	}
	return cart, nil
}

// UpdateItem changes the quantity of a cart line; zero removes the line
func (s *Service) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*OrderView, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	db := s.db.WithContext(ctx)
	cart, err := s.findCart(db, userID)
	if err != nil {
		return nil, err
	}
	res := db.Model(&domain.OrderItem{}).
		Where("id = ? AND order_id = ?", itemID, cart.ID).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "update cart item")
	}
	if res.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}
	return s.view(db, cart, 0)
}

// RemoveItem deletes a line from the user's cart
func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) (*OrderView, error) {
	db := s.db.WithContext(ctx)
	cart, err := s.findCart(db, userID)
	if err != nil {
		return nil, err
	}
	res := db.Where("id = ? AND order_id = ?", itemID, cart.ID).Delete(&domain.OrderItem{})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}
	return s.view(db, cart, 0)
}

// Checkout turns the user's cart into a new order. The cart row is locked and
// switched with a conditional update, so concurrent checkouts succeed at most once.
func (s *Service) Checkout(ctx context.Context, userID int64, contactID *int64) (*OrderView, error) {
	var result *OrderView
	var event CheckoutEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("user_id = ? AND state = ?", userID, domain.OrderStateCart)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var cart domain.Order
		if err := q.First(&cart).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCartNotFound
		} else if err != nil {
			return pkgerrors.Wrap(err, "lock cart")
		}

		var items int64
		if err := tx.Model(&domain.OrderItem{}).Where("order_id = ?", cart.ID).Count(&items).Error; err != nil {
			return pkgerrors.Wrap(err, "count cart items")
		}
		if items == 0 {
			return ErrEmptyCart
		}

		if contactID != nil {
			var n int64
			if err := tx.Model(&domain.Contact{}).
				Where("id = ? AND user_id = ?", *contactID, userID).
				Count(&n).Error; err != nil {
				return pkgerrors.Wrap(err, "query contact")
			}
			if n == 0 {
				return ErrContactNotFound
			}
		}

		res := tx.Model(&domain.Order{}).
			Where("id = ? AND state = ?", cart.ID, domain.OrderStateCart).
			Updates(map[string]interface{}{
				"state":      domain.OrderStateNew,
				"contact_id": contactID,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return pkgerrors.Wrap(res.Error, "update cart state")
		}
		if res.RowsAffected == 0 {
			return ErrCartNotFound
		}
		cart.State = domain.OrderStateNew
		cart.ContactId = contactID

		view, err := s.view(tx, &cart, 0)
		if err != nil {
			return err
		}
		result = view

		var user domain.SysUser
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(err, "query user")
		}
		event = CheckoutEvent{
			OrderID:   cart.ID,
			UserID:    userID,
			Email:     user.Email,
			Username:  user.Username,
			Total:     view.Total,
			Items:     view.Items,
			CreatedAt: cart.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deferFn(func() {
		metrics.Incr(MetricCheckoutTotal)
		if s.bus != nil {
			s.bus.Publish(TopicCheckout, event)
		}
		zap.L().Info("order checked out",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("user_id", userID),
			zap.String("total", event.Total),
			zap.String("namespace", "ordering"))
	})
	return result, nil
}

// ListOrders returns non-cart orders matching filter, newest first
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]OrderView, int64, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&domain.Order{}).Where("state <> ?", domain.OrderStateCart)
	if filter.UserId != 0 {
		q = q.Where("user_id = ?", filter.UserId)
	}
	if filter.ShopId != 0 {
		q = q.Where("id IN (?)", db.Table("order_item oi").
			Select("oi.order_id").
			Joins("JOIN product_info pi ON pi.id = oi.product_info_id").
			Where("pi.shop_id = ?", filter.ShopId))
	}
	if filter.State != "" {
		q = q.Where("state = ?", filter.State)
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var orders []domain.Order
	if err := q.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&orders).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "query orders")
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := loadItems(db, ids, filter.ShopId)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "query order items")
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, buildView(o, items[o.ID]))
	}
	return views, total, nil
}

// GetOrder returns a non-cart order with its lines
func (s *Service) GetOrder(ctx context.Context, orderID int64) (*OrderView, error) {
	db := s.db.WithContext(ctx)
	order, err := s.findOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	return s.view(db, order, 0)
}

// OrderHasShop reports whether the order contains listings of shopID
func (s *Service) OrderHasShop(ctx context.Context, orderID, shopID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Table("order_item oi").
		Joins("JOIN product_info pi ON pi.id = oi.product_info_id").
		Where("oi.order_id = ? AND pi.shop_id = ?", orderID, shopID).
		Count(&n).Error
	return n > 0, err
}

// UpdateState moves an order along the state machine
func (s *Service) UpdateState(ctx context.Context, orderID int64, to string) (*OrderView, error) {
	db := s.db.WithContext(ctx)
	order, err := s.findOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	from := order.State
	if !domain.CanTransitOrderState(from, to) {
		return nil, pkgerrors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}
	res := db.Model(&domain.Order{}).
		Where("id = ? AND state = ?", orderID, from).
		Updates(map[string]interface{}{"state": to, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(res.Error, "update order state")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.Wrapf(ErrInvalidTransition, "%s changed concurrently", from)
	}
	order.State = to

	var user domain.SysUser
	db.Where("id = ?", order.UserId).First(&user)
	event := StateChangedEvent{
		OrderID:  order.ID,
		UserID:   order.UserId,
		Email:    user.Email,
		Username: user.Username,
		From:     from,
		To:       to,
	}
	s.deferFn(func() {
		if s.bus != nil {
			s.bus.Publish(TopicStateChanged, event)
		}
	})
	return s.view(db, order, 0)
}

func (s *Service) findCart(db *gorm.DB, userID int64) (*domain.Order, error) {
	var cart domain.Order
	err := db.Where("user_id = ? AND state = ?", userID, domain.OrderStateCart).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query cart")
	}
	return &cart, nil
}

func (s *Service) findOrder(db *gorm.DB, orderID int64) (*domain.Order, error) {
	var order domain.Order
	err := db.Where("id = ? AND state <> ?", orderID, domain.OrderStateCart).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query order")
	}
	return &order, nil
}

func (s *Service) view(db *gorm.DB, order *domain.Order, shopID int64) (*OrderView, error) {
	items, err := loadItems(db, []int64{order.ID}, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query order items")
	}
	v := buildView(*order, items[order.ID])
	return &v, nil
}
