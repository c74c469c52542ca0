package repository

import (
	"context"

	"course_sync_backend/internal/model"

	"gorm.io/gorm"
)

type ModuleRepository struct {
	DB *gorm.DB
}

func NewModuleRepository(db *gorm.DB) *ModuleRepository {
	return &ModuleRepository{DB: db}
}

func (r *ModuleRepository) ModulesForCourse(ctx context.Context, courseID string) ([]model.CourseModule, error) {
	var modules []model.CourseModule
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("`order` ASC").
		Find(&modules).Error
	if err != nil {
		return nil, err
	}
	return modules, nil
}
