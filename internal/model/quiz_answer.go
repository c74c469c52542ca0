package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAnswerRecord 测验答案远端表，按 (user_id, slide_id) upsert
// Payload 为客户端提交的原始答案JSON（选项、得分、尝试次数等）
type QuizAnswerRecord struct {
	BaseModel
	UserID     uint           `gorm:"uniqueIndex:idx_user_slide_quiz;not null" json:"userId"`
	SlideID    string         `gorm:"uniqueIndex:idx_user_slide_quiz;type:varchar(36);not null" json:"slideId"`
	CourseID   string         `gorm:"index;type:varchar(36);not null" json:"courseId"`
	Payload    datatypes.JSON `gorm:"type:json" json:"payload"`
	AnsweredAt time.Time      `json:"answeredAt"`
}

func (QuizAnswerRecord) TableName() string {
	return "quiz_answer_records"
}
