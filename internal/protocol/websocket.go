package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

// Upgrader accepts surface connections. Origins are not checked since the
// surface listens on a local address.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1 << 20,
	WriteBufferSize: 1 << 20,
}

// WebSocket is a Transport over a websocket connection, one text frame per
// message.
type WebSocket struct {
	conn *websocket.Conn
	wmu  sync.Mutex
	in   chan received
	last received
	done chan struct{}
	once sync.Once
}

// NewWebSocket wraps an established connection and starts its read loop.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{conn: conn, in: make(chan received), done: make(chan struct{})}
	go ws.readLoop()
	return ws
}

// DialWebSocket connects to a surface websocket endpoint.
func DialWebSocket(ctx context.Context, url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return NewWebSocket(conn), nil
}

// Accept upgrades an HTTP request to a websocket transport.
func Accept(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrading websocket: %w", err)
	}
	return NewWebSocket(conn), nil
}

func (ws *WebSocket) readLoop() {
	for {
		kind, msg, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = ErrClosed
			} else {
				slog.Debug("websocket read failed", "error", err)
				err = fmt.Errorf("%w: %v", ErrClosed, err)
			}
			ws.last = received{err: err}
			close(ws.in)
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case ws.in <- received{msg: msg}:
		case <-ws.done:
			return
		}
	}
}

// Send writes msg as a text frame, honoring the context deadline.
func (ws *WebSocket) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	ws.wmu.Lock()
	defer ws.wmu.Unlock()
	if dl, ok := ctx.Deadline(); ok {
		_ = ws.conn.SetWriteDeadline(dl)
		defer ws.conn.SetWriteDeadline(time.Time{})
	}
	if err := ws.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("writing websocket frame: %w", err)
	}
	return nil
}

// Receive returns the next text frame.
func (ws *WebSocket) Receive(ctx context.Context) ([]byte, error) {
	return recvOrErr(ctx, ws.in, ws.done, &ws.last)
}

// Close sends a close frame and closes the connection.
func (ws *WebSocket) Close() error {
	var err error
	ws.once.Do(func() {
		close(ws.done)
		ws.wmu.Lock()
		_ = ws.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace))
		ws.wmu.Unlock()
		err = ws.conn.Close()
	})
	return err
}
