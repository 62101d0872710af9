package devserver

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"pkt.systems/parley/internal/protocol"
	"pkt.systems/pslog"
)

type wsConn struct {
	id     string
	userID string
	token  string
	conn   *websocket.Conn
	logger pslog.Logger

	sendMu sync.Mutex
}

func newWSConn(id string, conn *websocket.Conn, logger pslog.Logger) *wsConn {
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	return &wsConn{id: id, conn: conn, logger: logger}
}

func (c *wsConn) Send(ctx context.Context, ev protocol.Event) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return wsjson.Write(ctx, c.conn, ev)
}

func (c *wsConn) Close(reason string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}

func readEvent(ctx context.Context, conn *websocket.Conn, readLimit int64) (protocol.Event, error) {
	conn.SetReadLimit(readLimit)
	msgType, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.Event{}, err
	}
	if msgType != websocket.MessageText {
		return protocol.Event{}, fmt.Errorf("expected text websocket frame")
	}
	return protocol.Decode(data)
}
