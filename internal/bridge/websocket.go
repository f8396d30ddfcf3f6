package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 90 * time.Second

	// defaultReadLimit is far above any bridge request.
	defaultReadLimit = 64 << 10
)

// WebSocketTransport carries bridge messages over one WebSocket connection.
// Writes are serialized; gorilla/websocket allows a single concurrent writer.
type WebSocketTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	pingInterval time.Duration
	pongWait     time.Duration
	readLimit    int64

	mu     sync.Mutex
	closed bool
}

// NewWebSocketTransport wraps an established connection.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{
		conn:         conn,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		pongWait:     defaultPongWait,
		readLimit:    defaultReadLimit,
	}
}

// Send writes message as a single text frame.
func (t *WebSocketTransport) Send(ctx context.Context, message []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("websocket transport closed")
	}

	deadline := time.Now().Add(t.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := t.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Serve reads frames until the connection closes or ctx is cancelled. Each
// frame is handed to endpoint on its own goroutine, so answers can be produced
// out of order. The peer is pinged periodically and dropped when it stops
// answering. Serve returns after all in-flight messages are handled.
func (t *WebSocketTransport) Serve(ctx context.Context, endpoint Endpoint) error {
	stop := context.AfterFunc(ctx, func() {
		t.Close()
	})
	defer stop()

	t.conn.SetReadLimit(t.readLimit)
	if err := t.conn.SetReadDeadline(time.Now().Add(t.pongWait)); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	t.conn.SetPongHandler(func(string) error {
		return t.conn.SetReadDeadline(time.Now().Add(t.pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go t.keepalive(done)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}
		t.conn.SetReadDeadline(time.Now().Add(t.pongWait))

		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			endpoint.HandleMessage(ctx, data)
		}()
	}
}

// keepalive pings the peer until done is closed or a ping cannot be written.
func (t *WebSocketTransport) keepalive(done <-chan struct{}) {
	ticker := time.NewTicker(t.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				return
			}
		}
	}
}

func (t *WebSocketTransport) ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errors.New("websocket transport closed")
	}
	return t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(t.writeTimeout))
}

// Close sends a close frame and closes the connection. Safe to call twice.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	t.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bridge closed"),
		time.Now().Add(time.Second))
	return t.conn.Close()
}
