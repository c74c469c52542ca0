package model

import "gorm.io/datatypes"

// ChatTranscript AI助教聊天记录远端表，按 (user_id, slide_id) upsert
type ChatTranscript struct {
	BaseModel
	UserID   uint           `gorm:"uniqueIndex:idx_user_slide_chat;not null" json:"userId"`
	SlideID  string         `gorm:"uniqueIndex:idx_user_slide_chat;type:varchar(36);not null" json:"slideId"`
	CourseID string         `gorm:"index;type:varchar(36);not null" json:"courseId"`
	Messages datatypes.JSON `gorm:"type:json" json:"messages"`
}

func (ChatTranscript) TableName() string {
	return "chat_transcripts"
}
