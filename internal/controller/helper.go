package controller

import (
	"context"
	"strconv"
	"time"

	"github.com/sharetube/partysync/internal/playback"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/service"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) generateTimeBasedId() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// broadcast writes output to every conn. A failing connection is logged and skipped.
func (c controller) broadcast(ctx context.Context, conns []connection.Conn, output *Output) {
	for _, conn := range conns {
		c.writeToConn(ctx, conn, output)
	}
}

func (c controller) writeToConn(ctx context.Context, conn connection.Conn, output *Output) {
	if conn == nil {
		return
	}

	if err := conn.WriteJSON(output); err != nil {
		c.logger.WarnContext(ctx, "failed to write to conn", "conn_id", conn.Id(), "type", output.Type, "error", err)
	}
}

func (c controller) broadcastPlayback(ctx context.Context, b service.PlaybackBroadcast) {
	msgType := "watchPlay"
	if b.Kind == playback.KindPause {
		msgType = "watchPause"
	}

	c.broadcast(ctx, b.Conns, &Output{
		Type: msgType,
		Payload: map[string]any{
			"currentTime": b.CurrentTime,
		},
	})
}
