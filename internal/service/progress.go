package service

import (
	"context"

	"course_sync_backend/internal/model"
	"course_sync_backend/internal/util"

	"go.uber.org/zap"
)

// RegistryReader 课程模块注册表读取口
type RegistryReader interface {
	ModulesForCourse(ctx context.Context, courseID string) ([]model.CourseModule, error)
}

// ProgressService 把滑片切换事件转成本地进度快照的写入
// 只写本地，不碰网络
type ProgressService struct {
	Store    *SnapshotStore
	Registry RegistryReader
	Log      *zap.Logger
}

func NewProgressService(store *SnapshotStore, registry RegistryReader, log *zap.Logger) *ProgressService {
	return &ProgressService{
		Store:    store,
		Registry: registry,
		Log:      log,
	}
}

type AdvanceRequest struct {
	CourseID    string  `json:"courseId" binding:"required"`
	ModuleID    string  `json:"moduleId" binding:"required"`
	SlideIndex  int     `json:"slideIndex"`
	TotalSlides int     `json:"totalSlides" binding:"required"`
	LastSlideID *string `json:"lastSlideId"`
}

// Advance 推进某模块的进度并整体重写用户blob
// 越界的slideIndex静默修正；模块进度只升不降，回看旧滑片只移动光标
func (s *ProgressService) Advance(ctx context.Context, userID uint, req AdvanceRequest) (*model.CourseProgressSnapshot, error) {
	if req.TotalSlides <= 0 {
		return nil, util.ErrInvalidSlideCount
	}

	var result *model.CourseProgressSnapshot
	err := s.Store.WithLock(userID, func() error {
		snapshots := s.Store.Load(ctx, userID)

		idx := -1
		for i := range snapshots {
			if snapshots[i].CourseID == req.CourseID {
				idx = i
				break
			}
		}
		if idx == -1 {
			snapshots = append(snapshots, model.CourseProgressSnapshot{
				CourseID: req.CourseID,
				Modules:  []model.ModuleProgressEntry{},
			})
			idx = len(snapshots) - 1
		}
		snap := &snapshots[idx]

		pct := model.ModuleProgressPercent(req.SlideIndex, req.TotalSlides)
		total := req.TotalSlides

		entry := snap.ModuleEntry(req.ModuleID)
		if entry == nil {
			snap.Modules = append(snap.Modules, model.ModuleProgressEntry{
				ModuleID: req.ModuleID,
			})
			entry = &snap.Modules[len(snap.Modules)-1]
		}
		if pct > entry.Progress {
			entry.Progress = pct
		}
		entry.LastSlideID = req.LastSlideID
		entry.TotalSlides = &total

		s.normalizeModules(ctx, snap)
		snap.RecomputeProgress()
		snap.LastSlideID = req.LastSlideID

		if err := s.Store.Save(ctx, userID, snapshots); err != nil {
			return err
		}
		s.Store.MarkDirty(ctx, userID)

		result = snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalizeModules 把快照的模块列表对齐到注册表的课程成员：
// 注册表有而本地没有的模块补零，本地有而注册表没有的保留（注册表可能过期或不全）
func (s *ProgressService) normalizeModules(ctx context.Context, snap *model.CourseProgressSnapshot) {
	if s.Registry == nil {
		return
	}
	registered, err := s.Registry.ModulesForCourse(ctx, snap.CourseID)
	if err != nil {
		s.Log.Warn("module registry unavailable, aggregating over local entries only",
			zap.String("courseId", snap.CourseID), zap.Error(err))
		return
	}

	for _, m := range registered {
		if snap.ModuleEntry(m.ModuleID) != nil {
			continue
		}
		slides := m.SlideCount
		entry := model.ModuleProgressEntry{
			ModuleID: m.ModuleID,
			Progress: 0,
		}
		if slides > 0 {
			entry.TotalSlides = &slides
		}
		snap.Modules = append(snap.Modules, entry)
	}
}

// Reset 清零课程及其全部模块的进度和光标，条目保留不删除
func (s *ProgressService) Reset(ctx context.Context, userID uint, courseID string) error {
	return s.Store.WithLock(userID, func() error {
		snapshots := s.Store.Load(ctx, userID)

		for i := range snapshots {
			if snapshots[i].CourseID != courseID {
				continue
			}
			snap := &snapshots[i]
			snap.Progress = 0
			snap.LastSlideID = nil
			for j := range snap.Modules {
				snap.Modules[j].Progress = 0
				snap.Modules[j].LastSlideID = nil
			}

			if err := s.Store.Save(ctx, userID, snapshots); err != nil {
				return err
			}
			s.Store.MarkDirty(ctx, userID)
			return nil
		}
		return util.ErrCourseNotFound
	})
}

// Progress 返回用户全部课程快照
func (s *ProgressService) Progress(ctx context.Context, userID uint) []model.CourseProgressSnapshot {
	return s.Store.Load(ctx, userID)
}

// CourseProgress 返回单门课程快照，不存在时返回nil
func (s *ProgressService) CourseProgress(ctx context.Context, userID uint, courseID string) *model.CourseProgressSnapshot {
	for _, snap := range s.Store.Load(ctx, userID) {
		if snap.CourseID == courseID {
			return &snap
		}
	}
	return nil
}
