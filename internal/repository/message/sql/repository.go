package sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/partysync/internal/repository/message"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type messageRow struct {
	Id        string `gorm:"primaryKey;size:26"`
	FromUser  string `gorm:"index:idx_messages_pair,priority:1;not null"`
	ToUser    string `gorm:"index:idx_messages_pair,priority:2;not null"`
	Text      *string
	ImageUrl  *string
	GifUrl    *string
	Read      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (messageRow) TableName() string {
	return "direct_messages"
}

type repo struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database selected by driver ("postgres" or "sqlite") and migrates
// the message table.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported message store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// every pooled connection to an in-memory database would see its own empty schema
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func NewRepo(db *gorm.DB, logger *slog.Logger) *repo {
	return &repo{
		db:     db,
		logger: logger,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func toRow(m *message.Message) messageRow {
	return messageRow{
		Id:        m.Id,
		FromUser:  m.From,
		ToUser:    m.To,
		Text:      optional(m.Text),
		ImageUrl:  optional(m.ImageUrl),
		GifUrl:    optional(m.GifUrl),
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}

func fromRow(row *messageRow) message.Message {
	return message.Message{
		Id:        row.Id,
		From:      row.FromUser,
		To:        row.ToUser,
		Text:      deref(row.Text),
		ImageUrl:  deref(row.ImageUrl),
		GifUrl:    deref(row.GifUrl),
		Read:      row.Read,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (r repo) Create(ctx context.Context, msg *message.Message) error {
	r.logger.DebugContext(ctx, "called", "message_id", msg.Id)
	row := toRow(msg)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r repo) Get(ctx context.Context, messageId string) (message.Message, error) {
	r.logger.DebugContext(ctx, "called", "message_id", messageId)
	var row messageRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", messageId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, message.ErrMessageNotFound
		}

		return message.Message{}, fmt.Errorf("failed to get message: %w", err)
	}

	return fromRow(&row), nil
}

func (r repo) MarkRead(ctx context.Context, messageId string) error {
	r.logger.DebugContext(ctx, "called", "message_id", messageId)
	result := r.db.WithContext(ctx).Model(&messageRow{}).Where("id = ?", messageId).Update("read", true)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	if result.RowsAffected == 0 {
		return message.ErrMessageNotFound
	}

	return nil
}

func (r repo) ListConversation(ctx context.Context, a, b string, limit int) ([]message.Message, error) {
	r.logger.DebugContext(ctx, "called", "a", a, "b", b, "limit", limit)
	var rows []messageRow
	q := r.db.WithContext(ctx).
		Where("(from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)", a, b, b, a).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	messages := make([]message.Message, len(rows))
	for i := range rows {
		messages[len(rows)-1-i] = fromRow(&rows[i])
	}

	return messages, nil
}

func (r repo) ListChats(ctx context.Context, identity string) ([]message.Chat, error) {
	r.logger.DebugContext(ctx, "called", "identity", identity)
	var rows []messageRow
	err := r.db.WithContext(ctx).
		Where("from_user = ? OR to_user = ?", identity, identity).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get chats: %w", err)
	}

	seen := make(map[string]struct{})
	chats := make([]message.Chat, 0)
	for i := range rows {
		msg := fromRow(&rows[i])
		peer := msg.Peer(identity)
		if _, ok := seen[peer]; ok {
			continue
		}
		seen[peer] = struct{}{}
		chats = append(chats, message.Chat{PeerId: peer, LastMessage: msg})
	}

	return chats, nil
}
