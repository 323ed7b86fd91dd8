package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/danuprasetya/go-storefront/internal/metrics"
	"github.com/danuprasetya/go-storefront/internal/redisx"
)

type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

// Filter selects which row-change channels a subscription receives. The
// selection happens server-side: each criterion maps to a dedicated channel.
type Filter struct {
	UserID     string   // order updates for this user
	ProductIDs []string // stock updates for these products
}

func (f Filter) channels() []string {
	var out []string
	if f.UserID != "" {
		out = append(out, fmt.Sprintf(redisx.ChanUserOrders, f.UserID))
	}
	for _, id := range f.ProductIDs {
		out = append(out, fmt.Sprintf(redisx.ChanProductStock, id))
	}
	return out
}

type Event struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Transport abstracts the pub/sub backend so the subscription state machine
// can be driven by a fake in tests.
type Transport interface {
	Subscribe(ctx context.Context, channels ...string) (Conn, error)
	Ping(ctx context.Context) error
}

type Conn interface {
	Messages() <-chan Message
	Close() error
}

type Message struct {
	Channel string
	Payload string
}

type redisTransport struct{ rdb *redis.Client }

func (t redisTransport) Subscribe(ctx context.Context, channels ...string) (Conn, error) {
	ps := t.rdb.Subscribe(ctx, channels...)
	// Force the initial SUBSCRIBE round trip so connect failures surface here.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return redisConn{ps: ps, ch: ps.Channel()}, nil
}

func (t redisTransport) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}

type redisConn struct {
	ps *redis.PubSub
	ch <-chan *redis.Message
}

func (c redisConn) Messages() <-chan Message {
	out := make(chan Message)
	go func() {
		defer close(out)
		for m := range c.ch {
			out <- Message{Channel: m.Channel, Payload: m.Payload}
		}
	}()
	return out
}

func (c redisConn) Close() error { return c.ps.Close() }

// Notifier hands out realtime subscriptions. Delivery is at-most-once per
// underlying change, but the channel may redeliver around a reconnect, so
// event handlers must be idempotent.
type Notifier struct {
	Transport    Transport
	PollInterval time.Duration // connection state poll; no push state event is guaranteed
	RetryWait    time.Duration
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{
		Transport:    redisTransport{rdb: rdb},
		PollInterval: 15 * time.Second,
		RetryWait:    2 * time.Second,
	}
}

// Subscription is owned by a single goroutine started in Subscribe; Subscribe
// and Unsubscribe are the only mutation points.
type Subscription struct {
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Unsubscribe stops delivery. Safe to call any number of times, including
// after the underlying connection is already gone.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		metrics.RealtimeSubscriptions.Dec()
	})
}

// Subscribe starts delivering matching events to onEvent. onRecover, when
// non-nil, fires after a successful reconnect so the caller can re-fetch state
// changed while disconnected; it does not fire on the first connect.
func (n *Notifier) Subscribe(filter Filter, onEvent func(Event), onRecover func()) *Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{state: StateConnecting, cancel: cancel, done: make(chan struct{})}
	metrics.RealtimeSubscriptions.Inc()

	go n.run(ctx, sub, filter.channels(), onEvent, onRecover)
	return sub
}

func (n *Notifier) run(ctx context.Context, sub *Subscription, channels []string, onEvent func(Event), onRecover func()) {
	defer close(sub.done)
	defer sub.setState(StateDisconnected)

	if len(channels) == 0 {
		return
	}

	everConnected := false
	for {
		sub.setState(StateConnecting)
		conn, err := n.Transport.Subscribe(ctx, channels...)
		if err != nil {
			sub.setState(StateError)
			log.WithError(err).Warn("realtime subscribe failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.RetryWait):
				continue
			}
		}

		sub.setState(StateConnected)
		if everConnected && onRecover != nil {
			onRecover()
		}
		everConnected = true

		if !n.pump(ctx, sub, conn, onEvent) {
			_ = conn.Close()
			return
		}
		_ = conn.Close()
		sub.setState(StateDisconnected)
	}
}

// pump delivers messages until the connection drops (returns true: reconnect)
// or the subscription is cancelled (returns false).
func (n *Notifier) pump(ctx context.Context, sub *Subscription, conn Conn, onEvent func(Event)) bool {
	msgs := conn.Messages()
	ticker := time.NewTicker(n.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case m, ok := <-msgs:
			if !ok {
				return true
			}
			onEvent(Event{Channel: m.Channel, Payload: json.RawMessage(m.Payload)})
		case <-ticker.C:
			if err := n.Transport.Ping(ctx); err != nil {
				sub.setState(StateDisconnected)
				return true
			}
		}
	}
}
