package transport

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket treats each incoming websocket message as one chunk. The
// message/chunk boundaries carry no meaning to the framing layer: a
// producer may split a record across messages or batch many records into
// one. A normal or going-away closure is a clean end of stream; any other
// closure surfaces as a transport failure.
type WebSocket struct {
	conn *websocket.Conn
}

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

func (t *WebSocket) PollChunk() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

func (t *WebSocket) SetPollDeadline(deadline time.Time) error {
	return t.conn.SetReadDeadline(deadline)
}

func (t *WebSocket) Close() error {
	return t.conn.Close()
}
