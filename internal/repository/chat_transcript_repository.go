package repository

import (
	"context"

	"course_sync_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatTranscriptRepository struct {
	DB *gorm.DB
}

func NewChatTranscriptRepository(db *gorm.DB) *ChatTranscriptRepository {
	return &ChatTranscriptRepository{DB: db}
}

// Upsert 按 (user_id, slide_id) 冲突键写入
func (r *ChatTranscriptRepository) Upsert(ctx context.Context, row *model.ChatTranscript) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slide_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"course_id", "messages", "updated_at"}),
	}).Create(row).Error
}
