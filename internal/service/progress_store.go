package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"course_sync_backend/internal/localstore"
	"course_sync_backend/internal/model"

	"go.uber.org/zap"
)

// SnapshotStore 按用户缓存课程进度快照的本地存储
// 每个用户一个JSON blob，整体读写；损坏的blob按空数据处理，远端表是兜底记录
type SnapshotStore struct {
	kv  localstore.Store
	log *zap.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
	revs  map[uint]uint64
}

func NewSnapshotStore(kv localstore.Store, log *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		kv:    kv,
		log:   log,
		locks: make(map[uint]*sync.Mutex),
		revs:  make(map[uint]uint64),
	}
}

func progressKey(userID uint) string {
	return fmt.Sprintf("progress_%d", userID)
}

func dirtyKey(userID uint) string {
	return fmt.Sprintf("progress_dirty_%d", userID)
}

func (s *SnapshotStore) userLock(userID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// WithLock 串行化同一用户的 load-modify-save 周期，
// 消除滑片推进与推送快照拷贝之间的丢失更新竞争
func (s *SnapshotStore) WithLock(userID uint, fn func() error) error {
	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Load 读取用户全部课程快照，缺失或损坏一律返回空列表
func (s *SnapshotStore) Load(ctx context.Context, userID uint) []model.CourseProgressSnapshot {
	raw, ok, err := s.kv.Get(ctx, progressKey(userID))
	if err != nil {
		s.log.Warn("local progress blob unreadable, treating as empty",
			zap.Uint("userId", userID), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var snapshots []model.CourseProgressSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshots); err != nil {
		s.log.Warn("local progress blob corrupt, treating as empty",
			zap.Uint("userId", userID), zap.Error(err))
		return nil
	}
	return snapshots
}

// Save 整体重写用户的进度blob
func (s *SnapshotStore) Save(ctx context.Context, userID uint, snapshots []model.CourseProgressSnapshot) error {
	raw, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, progressKey(userID), string(raw)); err != nil {
		return err
	}

	s.mu.Lock()
	s.revs[userID]++
	s.mu.Unlock()
	return nil
}

// Revision 自进程启动以来该用户blob的写入序号，
// 推送方用它判断推送期间是否有并发本地变更
func (s *SnapshotStore) Revision(userID uint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revs[userID]
}

// MarkDirty 标记存在未推送的本地变更
func (s *SnapshotStore) MarkDirty(ctx context.Context, userID uint) {
	if err := s.kv.Set(ctx, dirtyKey(userID), "1"); err != nil {
		s.log.Warn("failed to set dirty marker", zap.Uint("userId", userID), zap.Error(err))
	}
}

func (s *SnapshotStore) ClearDirty(ctx context.Context, userID uint) {
	if err := s.kv.Delete(ctx, dirtyKey(userID)); err != nil {
		s.log.Warn("failed to clear dirty marker", zap.Uint("userId", userID), zap.Error(err))
	}
}

func (s *SnapshotStore) IsDirty(ctx context.Context, userID uint) bool {
	_, ok, err := s.kv.Get(ctx, dirtyKey(userID))
	if err != nil {
		// 读不到标记时宁可认为脏，多推一次是幂等的
		return true
	}
	return ok
}
