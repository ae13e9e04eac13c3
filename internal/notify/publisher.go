package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
)

const (
	// DefaultChannel is used when no channel is configured.
	DefaultChannel = "stockdesk:notifications"
	recentSuffix   = ":recent"
	recentKeep     = 100
)

// Kind classifies a notification.
type Kind string

const (
	KindLowStock    Kind = "low_stock"
	KindPriceChange Kind = "price_change"
)

// Notification is the JSON payload published for the desktop client.
type Notification struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ProductID int64     `json:"productId"`
	SKU       string    `json:"sku"`
	At        time.Time `json:"at"`
}

// Publisher sends catalog notifications over a Redis channel and keeps the
// latest ones in a capped list.
type Publisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewPublisher builds a Publisher. An empty channel falls back to DefaultChannel.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel, now: func() time.Time { return time.Now().UTC() }}
}

// Channel returns the pub/sub channel name.
func (p *Publisher) Channel() string {
	return p.channel
}

// LowStock implements catalog.Notifier.
func (p *Publisher) LowStock(ctx context.Context, product catalog.Product) error {
	return p.Publish(ctx, Notification{
		Kind:      KindLowStock,
		Title:     "Low Stock Alert",
		Body:      fmt.Sprintf("%s is running low on stock (%d remaining).", product.Name, product.Stock),
		ProductID: product.ID,
		SKU:       product.SKU,
	})
}

// PriceChanged implements catalog.Notifier.
func (p *Publisher) PriceChanged(ctx context.Context, product catalog.Product, oldPrice float64) error {
	old := catalog.Product{Price: oldPrice}
	return p.Publish(ctx, Notification{
		Kind:      KindPriceChange,
		Title:     "Price Change Alert",
		Body:      fmt.Sprintf("%s price changed from %s to %s.", product.Name, old.DisplayPrice(), product.DisplayPrice()),
		ProductID: product.ID,
		SKU:       product.SKU,
	})
}

// Publish stamps n, publishes it and records it in the recent list.
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	if p == nil || p.client == nil {
		return nil
	}
	if n.At.IsZero() {
		n.At = p.now()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode: %w", err)
	}
	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	pipe.LPush(ctx, p.channel+recentSuffix, payload)
	pipe.LTrim(ctx, p.channel+recentSuffix, 0, recentKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("notify: publish %s: %w", n.Kind, err)
	}
	return nil
}

// Recent returns up to limit of the latest notifications, newest first.
func (p *Publisher) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > recentKeep {
		limit = recentKeep
	}
	raw, err := p.client.LRange(ctx, p.channel+recentSuffix, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("notify: recent: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("notify: decode: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}
