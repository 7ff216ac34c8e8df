package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/partysync/internal/playback"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/repository/message"
	"github.com/sharetube/partysync/internal/repository/room"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrRoomNotFound     = errors.New("room not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrStore            = errors.New("store failure")
)

var (
	ErrPlaylistLimitReached = fmt.Errorf("%w: playlist limit reached", ErrValidation)
	ErrQueueIndexOutOfRange = fmt.Errorf("%w: queue index out of range", ErrValidation)
	ErrEmptyMessage         = fmt.Errorf("%w: message has no text, image or gif", ErrValidation)
)

type iRoomRepo interface {
	Load(ctx context.Context, roomId string) (room.Room, error)
	Create(ctx context.Context, rm *room.Room) error
	Save(ctx context.Context, rm *room.Room) error
	Delete(ctx context.Context, roomId string) error
	ListByMember(ctx context.Context, identity string) ([]room.Room, error)
}

type iConnRepo interface {
	Register(conn connection.Conn, identity string)
	GetConn(identity string) (connection.Conn, bool)
	GetIdentity(conn connection.Conn) (string, bool)
	RemoveByConn(conn connection.Conn) (string, bool)
	Subscribe(conn connection.Conn, topic string)
	Unsubscribe(conn connection.Conn, topic string)
	GetSubscribers(topic string) []connection.Conn
	IsSubscribed(conn connection.Conn, topic string) bool
}

type iMessageRepo interface {
	Create(ctx context.Context, msg *message.Message) error
	Get(ctx context.Context, messageId string) (message.Message, error)
	MarkRead(ctx context.Context, messageId string) error
	ListConversation(ctx context.Context, a, b string, limit int) ([]message.Message, error)
	ListChats(ctx context.Context, identity string) ([]message.Chat, error)
}

// PlaybackSink receives throttled playback ticks together with the connections that
// should see them.
type PlaybackSink func(ctx context.Context, broadcast PlaybackBroadcast)

type service struct {
	roomRepo            iRoomRepo
	connRepo            iConnRepo
	messageRepo         iMessageRepo
	roomLocker          *keyedMutex
	playback            *playback.Throttle
	playlistLimit       int
	chatHistoryLimit    int
	conversationLimit   int
	persistReadReceipts bool
	secret              []byte
	logger              *slog.Logger

	sinkMu sync.RWMutex
	sink   PlaybackSink
}

type Config struct {
	PlaylistLimit       int
	ChatHistoryLimit    int
	ConversationLimit   int
	PersistReadReceipts bool
	PlaybackInterval    time.Duration
	PlaybackJitter      float64
	Secret              string
	Logger              *slog.Logger
}

func New(roomRepo iRoomRepo, connRepo iConnRepo, messageRepo iMessageRepo, cfg *Config) *service {
	s := &service{
		roomRepo:            roomRepo,
		connRepo:            connRepo,
		messageRepo:         messageRepo,
		roomLocker:          newKeyedMutex(),
		playlistLimit:       cfg.PlaylistLimit,
		chatHistoryLimit:    cfg.ChatHistoryLimit,
		conversationLimit:   cfg.ConversationLimit,
		persistReadReceipts: cfg.PersistReadReceipts,
		secret:              []byte(cfg.Secret),
		logger:              cfg.Logger,
	}
	s.playback = playback.New(&playback.Config{
		Interval: cfg.PlaybackInterval,
		Jitter:   cfg.PlaybackJitter,
	}, s.emitPlayback)

	return s
}

// SetPlaybackSink installs the receiver of throttled playback broadcasts. It must be
// called before the first playback event is submitted.
func (s *service) SetPlaybackSink(sink PlaybackSink) {
	s.sinkMu.Lock()
	defer s.sinkMu.Unlock()
	s.sink = sink
}

// Close stops pending playback timers.
func (s *service) Close() {
	s.playback.Close()
}
