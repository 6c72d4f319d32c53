// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model, including the inbox directory query.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a conversation is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - A unique-index race on create surfaces as ErrDuplicate.
//   - On other DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - SortPair(a, b) -> (lo, hi)
//     Canonical participant order used for storage and lookup.
//
//   - GetOrCreateConversation(ctx, db, a, b, ctxType, ctxID) -> *domain.Conversation, created, error
//     Finds the conversation for the unordered pair and context or inserts it.
//
//   - ListConversationSummaries(ctx, db, userID) -> []domain.ConversationSummary, error
//     One aggregate query: other participant profile and unread count per row.
//
//   - TouchConversation(ctx, db, id, preview, at) -> error
//     Updates the denormalized preview columns.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SortPair returns the two ids in storage order.
func SortPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// GetConversation fetches a single conversation by id, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConversation looks up the conversation for the unordered pair (a, b)
// and context, or returns ErrNotFound.
func FindConversation(ctx context.Context, db *gorm.DB, a, b, ctxType, ctxID string) (*domain.Conversation, error) {
	lo, hi := SortPair(a, b)
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("participant_a_id = ? AND participant_b_id = ? AND context_type = ? AND context_id = ?", lo, hi, ctxType, ctxID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a conversation for the unordered pair.
// Returns ErrDuplicate if the (pair, context) already exists.
func CreateConversation(ctx context.Context, db *gorm.DB, a, b, ctxType, ctxID string) (*domain.Conversation, error) {
	lo, hi := SortPair(a, b)
	ts := now()
	c := &domain.Conversation{
		ID:             uuid.NewString(),
		ParticipantAID: lo,
		ParticipantBID: hi,
		ContextType:    ctxType,
		ContextID:      ctxID,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return c, nil
}

// GetOrCreateConversation returns the existing conversation for the pair and
// context, creating it when missing. created reports whether a row was
// inserted. A concurrent insert that wins the unique index is re-read.
func GetOrCreateConversation(ctx context.Context, db *gorm.DB, a, b, ctxType, ctxID string) (c *domain.Conversation, created bool, err error) {
	c, err = FindConversation(ctx, db, a, b, ctxType, ctxID)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	c, err = CreateConversation(ctx, db, a, b, ctxType, ctxID)
	if errors.Is(err, ErrDuplicate) {
		c, err = FindConversation(ctx, db, a, b, ctxType, ctxID)
		return c, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// TouchConversation records the latest activity of a conversation.
func TouchConversation(ctx context.Context, db *gorm.DB, id, preview string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message_at":      at,
			"last_message_preview": preview,
			"updated_at":           at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

const conversationDirectorySQL = `
SELECT
	c.id,
	c.context_type,
	c.context_id,
	c.last_message_at,
	c.last_message_preview,
	c.created_at,
	CASE WHEN c.participant_a_id = @uid THEN c.participant_b_id ELSE c.participant_a_id END AS other_id,
	COALESCE(p.full_name, '') AS other_full_name,
	COALESCE(p.avatar_url, '') AS other_avatar_url,
	(SELECT COUNT(*) FROM messages m
	  WHERE m.conversation_id = c.id AND m.sender_id <> @uid AND m.read_at IS NULL) AS unread_count
FROM conversations c
LEFT JOIN profiles p
	ON p.id = CASE WHEN c.participant_a_id = @uid THEN c.participant_b_id ELSE c.participant_a_id END
WHERE c.participant_a_id = @uid OR c.participant_b_id = @uid
ORDER BY COALESCE(c.last_message_at, c.created_at) DESC, c.id DESC`

type conversationRow struct {
	ID                 string
	ContextType        string
	ContextID          string
	LastMessageAt      *time.Time
	LastMessagePreview string
	CreatedAt          time.Time
	OtherID            string
	OtherFullName      string
	OtherAvatarURL     string
	UnreadCount        int64
}

// ListConversationSummaries returns the inbox of userID, most recent activity
// first, with the other participant's public profile and the number of
// inbound unread messages.
func ListConversationSummaries(ctx context.Context, db *gorm.DB, userID string) ([]domain.ConversationSummary, error) {
	var rows []conversationRow
	if err := db.WithContext(ctx).Raw(conversationDirectorySQL, map[string]any{"uid": userID}).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ConversationSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ConversationSummary{
			ID:                 r.ID,
			ContextType:        r.ContextType,
			ContextID:          r.ContextID,
			LastMessageAt:      r.LastMessageAt,
			LastMessagePreview: r.LastMessagePreview,
			CreatedAt:          r.CreatedAt,
			Other: domain.PublicProfile{
				ID:        r.OtherID,
				FullName:  r.OtherFullName,
				AvatarURL: r.OtherAvatarURL,
			},
			UnreadCount: r.UnreadCount,
		})
	}
	return out, nil
}
