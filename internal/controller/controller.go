package controller

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/partysync/internal/repository/connection"
	"github.com/sharetube/partysync/internal/service"
	"github.com/sharetube/partysync/pkg/validator"
	"github.com/sharetube/partysync/pkg/wsrouter"
	"github.com/sharetube/partysync/pkg/ytvideodata"
)

type iService interface {
	// session
	RegisterUser(context.Context, *service.RegisterUserParams) error
	Disconnect(context.Context, connection.Conn) service.DisconnectResponse
	JoinPost(context.Context, *service.PostParams) error
	LeavePost(context.Context, *service.PostParams) error
	GetPostConns(postId string) []connection.Conn
	// room
	JoinWatchRoom(context.Context, *service.JoinWatchRoomParams) (service.JoinWatchRoomResponse, error)
	LeaveWatchRoom(context.Context, *service.LeaveWatchRoomParams) error
	SendChatMessage(context.Context, *service.SendChatMessageParams) (service.SendChatMessageResponse, error)
	CreateRoom(context.Context, *service.CreateRoomParams) (service.CreateRoomResponse, error)
	InviteUsers(context.Context, *service.InviteUsersParams) (service.InviteUsersResponse, error)
	RemoveInvite(context.Context, *service.RemoveInviteParams) error
	EndRoom(context.Context, *service.EndRoomParams) (service.EndRoomResponse, error)
	ListMyRooms(ctx context.Context, identity string) ([]service.Room, error)
	// queue
	Enqueue(context.Context, *service.EnqueueParams) (service.QueueResponse, error)
	Skip(context.Context, *service.SkipParams) (service.QueueResponse, error)
	RemoveAt(context.Context, *service.RemoveAtParams) (service.QueueResponse, error)
	// playback
	SubmitPlayback(context.Context, *service.PlaybackParams) error
	SetPlaybackSink(service.PlaybackSink)
	// direct messages
	SendMessage(context.Context, *service.SendMessageParams) (service.SendMessageResponse, error)
	ResolveTypingRecipient(context.Context, *service.TypingParams) (connection.Conn, error)
	MessageRead(context.Context, *service.MessageReadParams) (connection.Conn, error)
	GetConversation(context.Context, *service.GetConversationParams) ([]service.Message, error)
	GetChatList(ctx context.Context, identity string) ([]service.Chat, error)
	// auth
	ParseJWT(token string) (*service.Claims, error)
}

type iVideoDataClient interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type controller struct {
	service        iService
	videoData      iVideoDataClient
	upgrader       websocket.Upgrader
	wsmux          *wsrouter.WSRouter
	validate       *validator.Validator
	logger         *slog.Logger
	strictMode     bool
	allowedOrigins []string
	writeTimeout   time.Duration
}

type Config struct {
	StrictMode     bool
	AllowedOrigins []string
	WriteTimeout   time.Duration
	Logger         *slog.Logger
}

func NewController(svc iService, videoData iVideoDataClient, cfg *Config) *controller {
	c := &controller{
		service:        svc,
		videoData:      videoData,
		validate:       validator.NewValidator(),
		logger:         cfg.Logger,
		strictMode:     cfg.StrictMode,
		allowedOrigins: cfg.AllowedOrigins,
		writeTimeout:   cfg.WriteTimeout,
	}
	c.upgrader = websocket.Upgrader{
		CheckOrigin: c.checkOrigin,
	}
	c.wsmux = c.getWSRouter()
	svc.SetPlaybackSink(c.broadcastPlayback)

	return c
}

// checkOrigin accepts requests without an Origin header (non-browser clients) and those
// from an allowed origin. A "*" entry allows every origin.
func (c *controller) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	return slices.Contains(c.allowedOrigins, "*") || slices.Contains(c.allowedOrigins, origin)
}
