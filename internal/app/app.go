package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/sharetube/partysync/internal/controller"
	"github.com/sharetube/partysync/internal/repository/connection/inmemory"
	"github.com/sharetube/partysync/internal/repository/message"
	messageRedis "github.com/sharetube/partysync/internal/repository/message/redis"
	messageSql "github.com/sharetube/partysync/internal/repository/message/sql"
	roomRedis "github.com/sharetube/partysync/internal/repository/room/redis"
	"github.com/sharetube/partysync/internal/service"
	"github.com/sharetube/partysync/pkg/ctxlogger"
	"github.com/sharetube/partysync/pkg/redisclient"
	"github.com/sharetube/partysync/pkg/ytvideodata"
)

const (
	MessageStoreRedis    = "redis"
	MessageStorePostgres = "postgres"
	MessageStoreSqlite   = "sqlite"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Secret              string        `json:"-"`
	Host                string        `json:"host"`
	Port                int           `json:"port"`
	LogLevel            string        `json:"log_level"`
	RedisHost           string        `json:"redis_host"`
	RedisPort           int           `json:"redis_port"`
	RedisPassword       string        `json:"-"`
	RedisDB             int           `json:"redis_db"`
	RoomTTL             time.Duration `json:"room_ttl"`
	MessageStore        string        `json:"message_store"`
	MessageStoreDSN     string        `json:"-"`
	PlaylistLimit       int           `json:"playlist_limit"`
	ChatHistoryLimit    int           `json:"chat_history_limit"`
	ConversationLimit   int           `json:"conversation_limit"`
	PlaybackInterval    time.Duration `json:"playback_interval"`
	PlaybackJitter      float64       `json:"playback_jitter"`
	StrictMode          bool          `json:"strict_mode"`
	PersistReadReceipts bool          `json:"persist_read_receipts"`
	AllowedOrigins      []string      `json:"allowed_origins"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	OEmbedURL           string        `json:"oembed_url"`
	WatchURL            string        `json:"watch_url"`
}

func (cfg *AppConfig) Validate() error {
	return validation.ValidateStruct(cfg,
		validation.Field(&cfg.Secret, validation.Required),
		validation.Field(&cfg.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&cfg.LogLevel, validation.By(func(value any) error {
			var level slog.Level
			return level.UnmarshalText([]byte(strings.ToUpper(value.(string))))
		})),
		validation.Field(&cfg.RedisPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&cfg.RoomTTL, validation.Min(time.Duration(0))),
		validation.Field(&cfg.MessageStore,
			validation.Required,
			validation.In(MessageStoreRedis, MessageStorePostgres, MessageStoreSqlite),
		),
		validation.Field(&cfg.MessageStoreDSN, validation.When(cfg.MessageStore != MessageStoreRedis, validation.Required)),
		validation.Field(&cfg.PlaylistLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.ChatHistoryLimit, validation.Required, validation.Min(1)),
		validation.Field(&cfg.ConversationLimit, validation.Min(0)),
		validation.Field(&cfg.PlaybackInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&cfg.PlaybackJitter, validation.Min(0.0)),
		validation.Field(&cfg.WriteTimeout, validation.Required, validation.Min(time.Millisecond)),
	)
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	// validated by AppConfig.Validate
	_ = logLevel.UnmarshalText([]byte(strings.ToUpper(level)))

	return slog.New(&ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	})
}

type messageRepo interface {
	Create(ctx context.Context, msg *message.Message) error
	Get(ctx context.Context, messageId string) (message.Message, error)
	MarkRead(ctx context.Context, messageId string) error
	ListConversation(ctx context.Context, a, b string, limit int) ([]message.Message, error)
	ListChats(ctx context.Context, identity string) ([]message.Chat, error)
}

// App holds the wired components of a running instance.
type App struct {
	handler http.Handler
	closers []func() error
}

// New wires repositories, the service and the controller on top of an existing redis
// client. The client is not closed by App.Close.
func New(rc *redis.Client, cfg *AppConfig, logger *slog.Logger) (*App, error) {
	a := &App{}

	var messages messageRepo
	switch cfg.MessageStore {
	case MessageStorePostgres, MessageStoreSqlite:
		db, err := messageSql.Open(cfg.MessageStore, cfg.MessageStoreDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open message store: %w", err)
		}
		a.closers = append(a.closers, func() error { return closeDB(db) })
		messages = messageSql.NewRepo(db, logger)
	default:
		messages = messageRedis.NewRepo(rc, logger)
	}

	svc := service.New(
		roomRedis.NewRepo(rc, cfg.RoomTTL, logger),
		inmemory.NewRepo(logger),
		messages,
		&service.Config{
			PlaylistLimit:       cfg.PlaylistLimit,
			ChatHistoryLimit:    cfg.ChatHistoryLimit,
			ConversationLimit:   cfg.ConversationLimit,
			PersistReadReceipts: cfg.PersistReadReceipts,
			PlaybackInterval:    cfg.PlaybackInterval,
			PlaybackJitter:      cfg.PlaybackJitter,
			Secret:              cfg.Secret,
			Logger:              logger,
		},
	)
	a.closers = append(a.closers, func() error {
		svc.Close()
		return nil
	})

	videoData := ytvideodata.New(&ytvideodata.Config{
		OEmbedURL: cfg.OEmbedURL,
		WatchURL:  cfg.WatchURL,
	})

	a.handler = controller.NewController(svc, videoData, &controller.Config{
		StrictMode:     cfg.StrictMode,
		AllowedOrigins: cfg.AllowedOrigins,
		WriteTimeout:   cfg.WriteTimeout,
		Logger:         logger,
	}).GetMux()

	return a, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	a, err := New(rc, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close app", "error", err)
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: a.Handler(),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gCtx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
