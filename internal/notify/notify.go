package notify

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/talkincode/retailhub/config"
	"github.com/talkincode/retailhub/internal/ordering"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers one message
type Sender func(m *gomail.Message) error

// Notifier mails buyers about their orders. Events arrive on the application
// bus after commit and are delivered by a bounded worker pool.
type Notifier struct {
	cfg  config.MailConfig
	pool *ants.Pool
	send Sender
	wg   sync.WaitGroup
}

func NewNotifier(cfg config.MailConfig) (*Notifier, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "create mail pool")
	}
	dialer := gomail.NewDialer(cfg.SmtpHost, cfg.SmtpPort, cfg.SmtpUser, cfg.SmtpPwd)
	return &Notifier{
		cfg:  cfg,
		pool: pool,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}, nil
}

// WithSender replaces the SMTP transport
func (n *Notifier) WithSender(s Sender) *Notifier {
	n.send = s
	return n
}

// Subscribe registers the order handlers on bus
func (n *Notifier) Subscribe(bus EventBus.Bus) error {
	if err := bus.Subscribe(ordering.TopicCheckout, n.onCheckout); err != nil {
		return errors.Wrap(err, "subscribe checkout")
	}
	if err := bus.Subscribe(ordering.TopicStateChanged, n.onStateChanged); err != nil {
		return errors.Wrap(err, "subscribe state change")
	}
	return nil
}

func (n *Notifier) onCheckout(ev ordering.CheckoutEvent) {
	if !n.enabled(ev.Email, ev.OrderID) {
		return
	}
	var body bytes.Buffer
	fmt.Fprintf(&body, "Hello %s,\n\nyour order #%d has been placed.\n\n", ev.Username, ev.OrderID)
	for _, it := range ev.Items {
		fmt.Fprintf(&body, "%s (%s) x %d = %s\n", it.ProductName, it.ShopName, it.Quantity, it.Sum)
	}
	fmt.Fprintf(&body, "\nTotal: %s\n", ev.Total)
	n.submit(ev.Email, fmt.Sprintf("Order #%d placed", ev.OrderID), body.String())
}

func (n *Notifier) onStateChanged(ev ordering.StateChangedEvent) {
	if !n.enabled(ev.Email, ev.OrderID) {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nyour order #%d is now %s.\n", ev.Username, ev.OrderID, ev.To)
	n.submit(ev.Email, fmt.Sprintf("Order #%d %s", ev.OrderID, ev.To), body)
}

func (n *Notifier) enabled(to string, orderID int64) bool {
	if !n.cfg.Enabled {
		zap.L().Debug("mail disabled, skip order notification",
			zap.Int64("order_id", orderID), zap.String("namespace", "notify"))
		return false
	}
	return to != ""
}

func (n *Notifier) submit(to, subject, body string) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	n.wg.Add(1)
	err := n.pool.Submit(func() {
		defer n.wg.Done()
		if err := n.send(m); err != nil {
			zap.L().Error("send mail failed", zap.String("to", to), zap.Error(err), zap.String("namespace", "notify"))
			return
		}
		zap.L().Info("mail sent", zap.String("to", to), zap.String("subject", subject), zap.String("namespace", "notify"))
	})
	if err != nil {
		n.wg.Done()
		zap.L().Error("submit mail task failed", zap.Error(err), zap.String("namespace", "notify"))
	}
}

// Wait blocks until queued messages are delivered
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Release drains the queue and stops the workers
func (n *Notifier) Release() {
	n.wg.Wait()
	n.pool.Release()
}
