package feed

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// StreamConn is the minimal surface the manager needs from a live stream
// connection. *binance.StreamConn satisfies it.
type StreamConn interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// DialFunc opens a connection for one topic (e.g. "btcusdt@ticker").
type DialFunc func(topic string) (StreamConn, error)

// Subscription is a handle on one topic's frame stream. The channel is
// closed when the subscription is released or the underlying connection
// drops; either way no error is surfaced and the consumer's last-known
// state simply stops changing.
type Subscription struct {
	Topic string
	C     <-chan []byte

	once   sync.Once
	cancel func()
}

// Unsubscribe releases the handle. Safe to call more than once, and safe to
// call while the connection is being torn down.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

type entry struct {
	conn        StreamConn
	subscribers map[int]chan []byte
	nextID      int
	closed      bool
}

// Manager owns exactly one live connection per topic. Subscribing to a topic
// that is already open shares the existing connection instead of dialing a
// second one; the connection is closed when the last subscriber leaves.
type Manager struct {
	dial    DialFunc
	logger  *zap.Logger
	bufSize int

	mu      sync.Mutex
	entries map[string]*entry
}

func NewManager(dial DialFunc, bufSize int, logger *zap.Logger) *Manager {
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Manager{
		dial:    dial,
		logger:  logger,
		bufSize: bufSize,
		entries: make(map[string]*entry),
	}
}

// Topic builds the provider topic string for a (symbol, channel) pair.
func Topic(symbol, channel string) string {
	return fmt.Sprintf("%s@%s", symbol, channel)
}

// Subscribe attaches to the topic's stream, dialing a new connection only if
// none exists yet.
func (m *Manager) Subscribe(symbol, channel string) (*Subscription, error) {
	topic := Topic(symbol, channel)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[topic]
	if !ok {
		conn, err := m.dial(topic)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}

		e = &entry{
			conn:        conn,
			subscribers: make(map[int]chan []byte),
		}
		m.entries[topic] = e

		m.logger.Info("stream opened", zap.String("topic", topic))
		go m.pump(topic, e)
	}

	id := e.nextID
	e.nextID++
	ch := make(chan []byte, m.bufSize)
	e.subscribers[id] = ch

	return &Subscription{
		Topic:  topic,
		C:      ch,
		cancel: func() { m.release(topic, id) },
	}, nil
}

// ActiveTopics reports the topics with a live connection, mostly for logging
// and tests.
func (m *Manager) ActiveTopics() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	topics := make([]string, 0, len(m.entries))
	for topic := range m.entries {
		topics = append(topics, topic)
	}
	return topics
}

// Close tears down every live connection.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for topic, e := range m.entries {
		m.closeEntryLocked(topic, e)
	}
}

// pump moves frames from the connection to every subscriber until the
// connection drops.
func (m *Manager) pump(topic string, e *entry) {
	for {
		msg, err := e.conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if !e.closed {
				m.logger.Warn("stream dropped", zap.String("topic", topic), zap.Error(err))
				m.closeEntryLocked(topic, e)
			}
			m.mu.Unlock()
			return
		}

		m.mu.Lock()
		for _, ch := range e.subscribers {
			select {
			case ch <- msg:
			default:
				// Subscriber is not keeping up; drop the frame rather than
				// stall every other topic consumer.
			}
		}
		m.mu.Unlock()
	}
}

func (m *Manager) release(topic string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[topic]
	if !ok {
		return
	}

	if ch, ok := e.subscribers[id]; ok {
		delete(e.subscribers, id)
		close(ch)
	}

	if len(e.subscribers) == 0 {
		m.logger.Info("stream closed", zap.String("topic", topic))
		m.closeEntryLocked(topic, e)
	}
}

// closeEntryLocked closes the connection and all remaining subscriber
// channels. Caller holds m.mu.
func (m *Manager) closeEntryLocked(topic string, e *entry) {
	if e.closed {
		return
	}
	e.closed = true

	_ = e.conn.Close()
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
	delete(m.entries, topic)
}
