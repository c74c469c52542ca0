package model

// CourseModule 课程模块注册表，由内容服务维护，本服务只读
// 用于把本地快照的模块列表归一化到课程的真实模块集合
type CourseModule struct {
	BaseModel
	CourseID   string `gorm:"uniqueIndex:idx_course_module;type:varchar(36);not null" json:"courseId"`
	ModuleID   string `gorm:"uniqueIndex:idx_course_module;type:varchar(36);not null" json:"moduleId"`
	SlideCount int    `gorm:"default:0" json:"slideCount"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}
