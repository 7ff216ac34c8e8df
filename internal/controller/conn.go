package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/pkg/wsrouter"
)

var errNotLiveConn = errors.New("connection is not a live websocket connection")

// wsConn wraps a websocket connection with an id and serialized writes. gorilla/websocket
// supports one concurrent reader and one concurrent writer.
type wsConn struct {
	id           string
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{
		id:           uuid.NewString(),
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (c *wsConn) Id() string {
	return c.id
}

func (c *wsConn) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

func (c *wsConn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}

	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func liveConn(conn wsrouter.Conn) (connection.Conn, error) {
	lc, ok := conn.(connection.Conn)
	if !ok {
		return nil, errNotLiveConn
	}

	return lc, nil
}
