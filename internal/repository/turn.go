package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

// turnRecord is the persisted shape of a chat turn.
type turnRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"type:varchar(128);not null;index:idx_messages_session_id"`
	Sender    string    `gorm:"type:varchar(8);not null;check:sender IN ('user','bot')"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (turnRecord) TableName() string { return "messages" }

func (r turnRecord) toDomain() chat.Turn {
	return chat.Turn{
		ID:        r.ID,
		SessionID: r.SessionID,
		Sender:    chat.Sender(r.Sender),
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}

// TurnRepository is the durable chat.Store backed by gorm.
type TurnRepository struct {
	db *gorm.DB
}

var _ chat.Store = (*TurnRepository)(nil)

func NewTurnRepository(db *gorm.DB) *TurnRepository {
	return &TurnRepository{db: db}
}

// InitSchema implements chat.Store.
func (repo *TurnRepository) InitSchema(ctx context.Context) error {
	if err := repo.db.WithContext(ctx).AutoMigrate(&turnRecord{}); err != nil {
		return &chat.StorageError{Op: "init schema", Err: err}
	}
	return nil
}

// InsertTurn implements chat.Store.
func (repo *TurnRepository) InsertTurn(ctx context.Context, sessionID string, sender chat.Sender, text string) (uint64, error) {
	if err := chat.ValidateTurn(sessionID, sender, text); err != nil {
		return 0, err
	}

	record := turnRecord{
		SessionID: sessionID,
		Sender:    string(sender),
		Text:      text,
	}
	if err := repo.db.WithContext(ctx).Create(&record).Error; err != nil {
		return 0, &chat.StorageError{Op: "insert turn", Err: err}
	}
	return record.ID, nil
}

// ListTurns implements chat.Store.
func (repo *TurnRepository) ListTurns(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	var records []turnRecord
	err := repo.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, &chat.StorageError{Op: "list turns", Err: err}
	}

	turns := make([]chat.Turn, 0, len(records))
	for _, record := range records {
		turns = append(turns, record.toDomain())
	}
	return turns, nil
}

// Close implements chat.Store.
func (repo *TurnRepository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
