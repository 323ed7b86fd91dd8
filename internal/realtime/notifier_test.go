package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	ch   chan Message
	once sync.Once
}

func (c *fakeConn) Messages() <-chan Message { return c.ch }

func (c *fakeConn) Close() error {
	c.drop()
	return nil
}

// drop simulates the server closing the connection.
func (c *fakeConn) drop() { c.once.Do(func() { close(c.ch) }) }

type fakeTransport struct {
	mu        sync.Mutex
	conns     []*fakeConn
	failFirst int
	pingErr   error
}

func (t *fakeTransport) Subscribe(_ context.Context, _ ...string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failFirst > 0 {
		t.failFirst--
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{ch: make(chan Message, 16)}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) Ping(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pingErr
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i >= len(t.conns) {
		return nil
	}
	return t.conns[i]
}

func (t *fakeTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func newTestNotifier(tr Transport) *Notifier {
	return &Notifier{Transport: tr, PollInterval: 10 * time.Millisecond, RetryWait: 5 * time.Millisecond}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSubscribeDeliversEvents(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	var mu sync.Mutex
	var got []Event
	sub := n.Subscribe(Filter{UserID: "user_1"}, func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	}, nil)
	defer sub.Unsubscribe()

	waitFor(t, func() bool { return sub.State() == StateConnected }, "never connected")

	tr.conn(0).ch <- Message{Channel: "rt:orders:user:user_1", Payload: `{"status":"shipped"}`}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, "event not delivered")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "rt:orders:user:user_1", got[0].Channel)
	assert.JSONEq(t, `{"status":"shipped"}`, string(got[0].Payload))
}

func TestReconnectFiresRecoveryCallback(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	var recovered sync.WaitGroup
	recovered.Add(1)
	recoveredOnce := sync.Once{}

	sub := n.Subscribe(Filter{UserID: "u"}, func(Event) {}, func() {
		recoveredOnce.Do(recovered.Done)
	})
	defer sub.Unsubscribe()

	waitFor(t, func() bool { return sub.State() == StateConnected }, "never connected")

	// Drop the connection; the loop must reconnect and fire OnRecover.
	tr.conn(0).drop()
	waitFor(t, func() bool { return tr.connCount() >= 2 }, "no reconnect")
	recovered.Wait()
	waitFor(t, func() bool { return sub.State() == StateConnected }, "not reconnected")
}

func TestRecoveryDoesNotFireOnFirstConnect(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	fired := make(chan struct{}, 1)
	sub := n.Subscribe(Filter{UserID: "u"}, func(Event) {}, func() {
		fired <- struct{}{}
	})
	defer sub.Unsubscribe()

	waitFor(t, func() bool { return sub.State() == StateConnected }, "never connected")
	select {
	case <-fired:
		t.Fatal("recovery callback fired on initial connect")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFailureRetriesWithErrorState(t *testing.T) {
	tr := &fakeTransport{failFirst: 2}
	n := newTestNotifier(tr)

	sub := n.Subscribe(Filter{UserID: "u"}, func(Event) {}, nil)
	defer sub.Unsubscribe()

	// Eventually connects after the transport stops failing.
	waitFor(t, func() bool { return sub.State() == StateConnected }, "never recovered from connect errors")
	assert.Equal(t, 1, tr.connCount())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	sub := n.Subscribe(Filter{UserID: "u"}, func(Event) {}, nil)
	waitFor(t, func() bool { return sub.State() == StateConnected }, "never connected")

	require.NotPanics(t, func() {
		sub.Unsubscribe()
		sub.Unsubscribe()
		sub.Unsubscribe()
	})
	assert.Equal(t, StateDisconnected, sub.State())
}

func TestUnsubscribeAfterConnectionGone(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	sub := n.Subscribe(Filter{UserID: "u"}, func(Event) {}, nil)
	waitFor(t, func() bool { return sub.State() == StateConnected }, "never connected")

	tr.conn(0).drop()
	require.NotPanics(t, func() { sub.Unsubscribe() })
}

func TestEmptyFilterSubscribesNothing(t *testing.T) {
	tr := &fakeTransport{}
	n := newTestNotifier(tr)

	sub := n.Subscribe(Filter{}, func(Event) {}, nil)
	waitFor(t, func() bool { return sub.State() == StateDisconnected }, "empty filter should terminate")
	assert.Zero(t, tr.connCount())
	require.NotPanics(t, func() { sub.Unsubscribe() })
}

func TestFilterChannels(t *testing.T) {
	f := Filter{UserID: "u1", ProductIDs: []string{"p1", "p2"}}
	assert.Equal(t, []string{
		"rt:orders:user:u1",
		"rt:stock:product:p1",
		"rt:stock:product:p2",
	}, f.channels())
}
