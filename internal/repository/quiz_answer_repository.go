package repository

import (
	"context"

	"course_sync_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizAnswerRepository struct {
	DB *gorm.DB
}

func NewQuizAnswerRepository(db *gorm.DB) *QuizAnswerRepository {
	return &QuizAnswerRepository{DB: db}
}

// Upsert 按 (user_id, slide_id) 冲突键写入
func (r *QuizAnswerRepository) Upsert(ctx context.Context, row *model.QuizAnswerRecord) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "slide_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"course_id", "payload", "answered_at", "updated_at"}),
	}).Create(row).Error
}
