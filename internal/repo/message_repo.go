// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// CreateMessage inserts a new message row. content is the stored (tagged)
// encoding.
func CreateMessage(ctx context.Context, db *gorm.DB, conversationID, senderID, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      now(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMessages returns the full history ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListMessagesAfter returns messages created strictly after the watermark,
// in the same order as ListMessages.
func ListMessagesAfter(ctx context.Context, db *gorm.DB, conversationID string, after time.Time) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ? AND created_at > ?", conversationID, after.UTC()).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// MarkMessagesRead stamps read_at on every unread message of the
// conversation that readerID did not send. Already-read rows are untouched.
func MarkMessagesRead(ctx context.Context, db *gorm.DB, conversationID, readerID string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Update("read_at", at)
	return res.RowsAffected, res.Error
}

// CountUnread uses a raw COUNT so a missing table surfaces as an error.
func CountUnread(ctx context.Context, db *gorm.DB, conversationID, readerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversationID, readerID).
		Scan(&total).Error
	return total, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
