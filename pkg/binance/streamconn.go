package binance

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// WSDialer opens one raw stream connection per topic against the Binance
// single-stream endpoint, e.g. wss://stream.binance.com:9443/ws/btcusdt@ticker.
type WSDialer struct {
	baseURL string
}

func NewWSDialer(baseURL string) *WSDialer {
	return &WSDialer{baseURL: baseURL}
}

func (d *WSDialer) Dial(topic string) (*StreamConn, error) {
	url := fmt.Sprintf("%s/ws/%s", d.baseURL, topic)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return &StreamConn{conn: conn}, nil
}

// StreamConn is a live subscription to a single symbol@channel topic. There
// is no automatic retry: a read error means the stream is gone and the
// consumer's last-known state freezes until it subscribes again.
type StreamConn struct {
	conn *websocket.Conn
}

// ReadMessage blocks until the next frame arrives or the connection drops.
func (c *StreamConn) ReadMessage() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *StreamConn) Close() error {
	return c.conn.Close()
}
