package feed

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errConnClosed = errors.New("connection closed")

type fakeConn struct {
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-c.frames:
		return msg, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
	dials int
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(map[string]*fakeConn)}
}

func (d *fakeDialer) dial(topic string) (StreamConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	conn := newFakeConn()
	d.conns[topic] = conn
	d.dials++
	return conn, nil
}

func (d *fakeDialer) conn(topic string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[topic]
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func recvClosed(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel, got frame")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestManager_SubscribeSharesConnection(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer.dial, 16, zap.NewNop())

	s1, err := m.Subscribe("btcusdt", "ticker")
	require.NoError(t, err)
	s2, err := m.Subscribe("btcusdt", "ticker")
	require.NoError(t, err)

	assert.Equal(t, 1, dialer.dials, "second subscriber must reuse the connection")
	assert.Equal(t, "btcusdt@ticker", s1.Topic)

	dialer.conn("btcusdt@ticker").frames <- []byte("frame-1")
	assert.Equal(t, []byte("frame-1"), recv(t, s1.C))
	assert.Equal(t, []byte("frame-1"), recv(t, s2.C))
}

func TestManager_DistinctTopicsDialSeparately(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer.dial, 16, zap.NewNop())

	_, err := m.Subscribe("btcusdt", "ticker")
	require.NoError(t, err)
	_, err = m.Subscribe("btcusdt", "trade")
	require.NoError(t, err)
	_, err = m.Subscribe("ethusdt", "ticker")
	require.NoError(t, err)

	assert.Equal(t, 3, dialer.dials)
	assert.ElementsMatch(t, []string{"btcusdt@ticker", "btcusdt@trade", "ethusdt@ticker"}, m.ActiveTopics())
}

func TestManager_LastUnsubscribeClosesConnection(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer.dial, 16, zap.NewNop())

	s1, _ := m.Subscribe("btcusdt", "ticker")
	s2, _ := m.Subscribe("btcusdt", "ticker")
	conn := dialer.conn("btcusdt@ticker")

	s1.Unsubscribe()
	recvClosed(t, s1.C)
	assert.False(t, conn.isClosed(), "connection stays open while a subscriber remains")

	s2.Unsubscribe()
	recvClosed(t, s2.C)
	assert.True(t, conn.isClosed(), "last unsubscribe releases the network resource")
	assert.Empty(t, m.ActiveTopics())
}

func TestManager_UnsubscribeIdempotent(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer.dial, 16, zap.NewNop())

	s, _ := m.Subscribe("btcusdt", "ticker")
	s.Unsubscribe()
	s.Unsubscribe()

	// Resubscribing after teardown dials a fresh connection.
	_, err := m.Subscribe("btcusdt", "ticker")
	require.NoError(t, err)
	assert.Equal(t, 2, dialer.dials)
}

func TestManager_DroppedConnectionClosesSubscribers(t *testing.T) {
	dialer := newFakeDialer()
	m := NewManager(dialer.dial, 16, zap.NewNop())

	s, _ := m.Subscribe("btcusdt", "ticker")
	conn := dialer.conn("btcusdt@ticker")

	// Simulate the remote end dropping the stream. No error surfaces; the
	// subscriber's channel just ends.
	conn.Close()
	recvClosed(t, s.C)
	assert.Empty(t, m.ActiveTopics())

	// Unsubscribing the stale handle afterwards is harmless.
	s.Unsubscribe()
}

func TestManager_DialFailure(t *testing.T) {
	m := NewManager(func(string) (StreamConn, error) {
		return nil, errors.New("dial refused")
	}, 16, zap.NewNop())

	_, err := m.Subscribe("btcusdt", "ticker")
	assert.Error(t, err)
	assert.Empty(t, m.ActiveTopics())
}
