package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/danuprasetya/go-storefront/internal/kafka"
	"github.com/danuprasetya/go-storefront/internal/orders"
	"github.com/danuprasetya/go-storefront/internal/redisx"
)

type OrderStore interface {
	Get(ctx context.Context, orderID string) (orders.Order, error)
}

// Bridge republishes domain events as minimal projections on the realtime
// pub/sub channels, and keeps the order status cache warm. Wired as the
// handler of the notifier binary's Kafka consumers.
type Bridge struct {
	Orders      OrderStore
	Redis       *redis.Client
	ServiceName string
}

// HandleOrderEvent consumes order lifecycle events (paid, status changed,
// cancelled) from any of the order topics.
func (b *Bridge) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	switch env.EventType {
	case orders.EventOrderPaid, orders.EventOrderStatusChanged, orders.EventOrderCancelled:
	default:
		return nil
	}

	if dup, err := b.seen(ctx, env.EventID); err != nil || dup {
		return err
	}

	orderID := env.CorrelationID
	o, err := b.Orders.Get(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}

	upd := orders.StatusUpdate{
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		Status:       o.Status,
		CancelReason: o.CancelReason,
		UpdatedAt:    &env.OccurredAt,
	}
	body := kafkax.MustMarshal(upd)

	// Refresh the owner's status cache so API reads see the new state
	// immediately.
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.UserID, o.ID)
	if err := b.Redis.Set(ctx, statusKey, body, redisx.TTLStatusCache).Err(); err != nil {
		log.WithError(err).Warn("status cache refresh failed")
	}

	channel := fmt.Sprintf(redisx.ChanUserOrders, o.UserID)
	return b.Redis.Publish(ctx, channel, body).Err()
}

// HandleStockEvent fans a stock change out to the product's watch channel.
func (b *Bridge) HandleStockEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventStockUpdated {
		return nil
	}

	if dup, err := b.seen(ctx, env.EventID); err != nil || dup {
		return err
	}

	p, err := kafkax.UnwrapPayload[orders.StockUpdatedPayload](env.Payload)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf(redisx.ChanProductStock, p.ProductID)
	return b.Redis.Publish(ctx, channel, kafkax.MustMarshal(p)).Err()
}

// seen dedupes by event id; redelivered Kafka messages are dropped here, not
// pushed to clients twice.
func (b *Bridge) seen(ctx context.Context, eventID string) (bool, error) {
	key := fmt.Sprintf(redisx.KeyDedup, b.ServiceName, eventID)
	set, err := b.Redis.SetNX(ctx, key, "1", redisx.TTLDedup).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
