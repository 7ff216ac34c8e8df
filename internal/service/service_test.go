package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/connection/inmemory"
	messageRedis "github.com/sharetube/partysync/internal/repository/message/redis"
	roomRedis "github.com/sharetube/partysync/internal/repository/room/redis"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu       sync.Mutex
	messages []any
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) Id() string {
	return c.id
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, v)
	return nil
}

type testEnv struct {
	svc      *service
	connRepo iConnRepo
	rc       *redis.Client
	mr       *miniredis.Miniredis
}

func defaultTestConfig() *Config {
	return &Config{
		PlaylistLimit:     25,
		ChatHistoryLimit:  50,
		ConversationLimit: 100,
		PlaybackInterval:  50 * time.Millisecond,
		PlaybackJitter:    0.4,
		Secret:            "test-secret",
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = defaultTestConfig()
	}

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := cfg.Logger
	connRepo := inmemory.NewRepo(logger)
	svc := New(
		roomRedis.NewRepo(rc, 0, logger),
		connRepo,
		messageRedis.NewRepo(rc, logger),
		cfg,
	)
	t.Cleanup(svc.Close)

	return &testEnv{svc: svc, connRepo: connRepo, rc: rc, mr: mr}
}

func (e *testEnv) createRoom(t *testing.T, creator string, invited ...string) Room {
	t.Helper()
	resp, err := e.svc.CreateRoom(context.Background(), &CreateRoomParams{
		CreatorId:    creator,
		Name:         "movie night",
		InvitedUsers: invited,
	})
	require.NoError(t, err)

	return resp.Room
}

func (e *testEnv) join(t *testing.T, conn connection.Conn, roomId string) {
	t.Helper()
	_, err := e.svc.JoinWatchRoom(context.Background(), &JoinWatchRoomParams{Conn: conn, RoomId: roomId})
	require.NoError(t, err)
}
