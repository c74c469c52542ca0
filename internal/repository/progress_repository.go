package repository

import (
	"context"

	"course_sync_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Upsert 按 (user_id, course_id) 冲突键写入，重复推送幂等
func (r *ProgressRepository) Upsert(ctx context.Context, row *model.UserCourseProgress) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"progress", "last_slide_id", "modules", "updated_at"}),
	}).Create(row).Error
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.UserCourseProgress, error) {
	var rows []model.UserCourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
