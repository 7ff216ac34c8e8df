package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/partysync/pkg/ctxlogger"
)

// serveWS upgrades the request and serves the connection until the transport fails.
// Registry cleanup runs on every exit path.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	conn := newWSConn(ws, c.writeTimeout)
	defer conn.Close()

	// the request context is canceled once the handler returns; connection scoped work
	// only needs its values
	ctx := ctxlogger.AppendCtx(context.WithoutCancel(r.Context()), slog.String("conn_id", conn.Id()))
	c.logger.InfoContext(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	defer c.disconnect(ctx, conn)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			c.logger.InfoContext(ctx, "websocket closed", "code", closeErr.Code)
			return
		}

		c.logger.InfoContext(ctx, "failed to serve conn", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, conn *wsConn) {
	resp := c.service.Disconnect(ctx, conn)
	if resp.Registered {
		c.logger.InfoContext(ctx, "user went offline", "user_id", resp.UserId)
	}
}
