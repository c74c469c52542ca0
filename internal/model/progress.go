package model

import "math"

// ModuleProgressEntry 单个模块的学习进度，嵌入快照的JSON列存储
type ModuleProgressEntry struct {
	ModuleID    string  `json:"moduleId"`
	Progress    int     `json:"progress"`
	LastSlideID *string `json:"lastSlideId,omitempty"`
	TotalSlides *int    `json:"totalSlides,omitempty"`
}

// CourseProgressSnapshot 一门课程的进度快照，本地缓存的基本单元
// Progress 始终由模块进度均值推导，不单独赋值
type CourseProgressSnapshot struct {
	CourseID    string                `json:"courseId"`
	Progress    int                   `json:"progress"`
	LastSlideID *string               `json:"lastSlideId,omitempty"`
	Modules     []ModuleProgressEntry `json:"modules"`
}

// UserCourseProgress 远端权威表，按 (user_id, course_id) upsert
type UserCourseProgress struct {
	BaseModel
	UserID      uint                  `gorm:"uniqueIndex:idx_user_course;not null" json:"userId"`
	CourseID    string                `gorm:"uniqueIndex:idx_user_course;type:varchar(36);not null" json:"courseId"`
	Progress    int                   `gorm:"default:0" json:"progress"`
	LastSlideID *string               `gorm:"type:varchar(36)" json:"lastSlideId"`
	Modules     []ModuleProgressEntry `gorm:"serializer:json;type:json" json:"modules"`
}

func (UserCourseProgress) TableName() string {
	return "user_course_progress"
}

// Snapshot 转为本地快照表示
func (p *UserCourseProgress) Snapshot() CourseProgressSnapshot {
	return CourseProgressSnapshot{
		CourseID:    p.CourseID,
		Progress:    p.Progress,
		LastSlideID: p.LastSlideID,
		Modules:     p.Modules,
	}
}

// RemoteRow 本地快照转远端行
func (s *CourseProgressSnapshot) RemoteRow(userID uint) *UserCourseProgress {
	return &UserCourseProgress{
		UserID:      userID,
		CourseID:    s.CourseID,
		Progress:    s.Progress,
		LastSlideID: s.LastSlideID,
		Modules:     s.Modules,
	}
}

// ModuleEntry 查找模块进度条目，不存在返回nil
func (s *CourseProgressSnapshot) ModuleEntry(moduleID string) *ModuleProgressEntry {
	for i := range s.Modules {
		if s.Modules[i].ModuleID == moduleID {
			return &s.Modules[i]
		}
	}
	return nil
}

// ModuleProgressPercent 计算模块进度百分比
// 仅在最后一张幻灯片上取100，其余情况封顶99：模块只有到达终点才算完成
func ModuleProgressPercent(slideIndex, totalSlides int) int {
	if totalSlides <= 0 {
		return 0
	}
	if slideIndex < 0 {
		slideIndex = 0
	}
	if slideIndex > totalSlides-1 {
		slideIndex = totalSlides - 1
	}
	if slideIndex == totalSlides-1 {
		return 100
	}
	pct := int(math.Floor(float64(slideIndex+1) / float64(totalSlides) * 100))
	if pct > 99 {
		pct = 99
	}
	return pct
}

// RecomputeProgress 以模块进度的算术平均（四舍五入）重算课程进度
func (s *CourseProgressSnapshot) RecomputeProgress() {
	if len(s.Modules) == 0 {
		s.Progress = 0
		return
	}
	sum := 0
	for _, m := range s.Modules {
		sum += m.Progress
	}
	s.Progress = int(math.Round(float64(sum) / float64(len(s.Modules))))
}
