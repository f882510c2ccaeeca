// Package ws binds websocket connections to engine subjects and maps
// duplex frames onto engine operations.
package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// DuplexConn adapts a *websocket.Conn to domain.Duplex. Outbound
// frames go through a buffered channel drained by a single write pump;
// a full buffer or a closed connection drops the frame.
type DuplexConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func NewDuplexConn(conn *websocket.Conn) *DuplexConn {
	return &DuplexConn{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (d *DuplexConn) Send(data []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close sends a close frame with the given status code and tears the
// connection down. Safe to call more than once.
func (d *DuplexConn) Close(code int) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.send)
	d.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	_ = d.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
	_ = d.conn.Close()
}

func (d *DuplexConn) writePump() {
	for data := range d.send {
		_ = d.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := d.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
