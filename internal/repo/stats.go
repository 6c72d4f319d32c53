// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// MessagesStats returns aggregate metadata for messages within a given
// conversation: the total number of rows, the latest CreatedAt and the
// latest ReadAt among those rows.
//
// Messages only change when read_at is set, so the pair of maxima uniquely
// identifies a version of the thread. When the conversation has no
// messages, the returned count is 0 and both times are nil.
func MessagesStats(ctx context.Context, db *gorm.DB, conversationID string) (count int64, maxCreatedAt, maxReadAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("conversation_id = ?", conversationID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, nil, err
	}
	if count == 0 {
		return 0, nil, nil, nil
	}

	// Latest values via ORDER BY/LIMIT (avoid MAX() -> TEXT in SQLite)
	var created struct{ CreatedAt time.Time }
	if err = db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID).
		Select("created_at").Order("created_at DESC").Limit(1).
		Scan(&created).Error; err != nil {
		return 0, nil, nil, err
	}
	var read struct{ ReadAt *time.Time }
	if err = db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ? AND read_at IS NOT NULL", conversationID).
		Select("read_at").Order("read_at DESC").Limit(1).
		Scan(&read).Error; err != nil {
		return 0, nil, nil, err
	}
	return count, &created.CreatedAt, read.ReadAt, nil
}

// ProductsStats returns the number of products and the latest UpdatedAt,
// used to tag marketplace listings.
func ProductsStats(ctx context.Context, db *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Product{})
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct{ UpdatedAt time.Time }
	if err = db.WithContext(ctx).Model(&domain.Product{}).
		Select("updated_at").Order("updated_at DESC").Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
