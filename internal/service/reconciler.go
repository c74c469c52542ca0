package service

import (
	"context"
	"errors"

	"course_sync_backend/internal/model"
	"course_sync_backend/pkg/monitoring"
	"course_sync_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProgressRemote 远端权威表访问口
type ProgressRemote interface {
	Upsert(ctx context.Context, row *model.UserCourseProgress) error
	ListByUser(ctx context.Context, userID uint) ([]model.UserCourseProgress, error)
}

// Reconciler 本地缓存与远端权威表之间的双向同步
type Reconciler struct {
	Store  *SnapshotStore
	Remote ProgressRemote
	Log    *zap.Logger
}

func NewReconciler(store *SnapshotStore, remote ProgressRemote, log *zap.Logger) *Reconciler {
	return &Reconciler{
		Store:  store,
		Remote: remote,
		Log:    log,
	}
}

// Push 把用户全部本地快照逐行upsert到远端
// 先在用户锁内拷贝快照列表再发请求，单行失败不中断其余行；
// 全部成功且推送期间无并发本地写入时才清除脏标记
func (r *Reconciler) Push(ctx context.Context, userID uint) error {
	ctx, span := tracing.Tracer.Start(ctx, "reconciler.push")
	span.SetAttributes(attribute.Int("user.id", int(userID)))
	defer span.End()

	var snapshots []model.CourseProgressSnapshot
	var rev uint64
	r.Store.WithLock(userID, func() error {
		loaded := r.Store.Load(ctx, userID)
		snapshots = make([]model.CourseProgressSnapshot, len(loaded))
		copy(snapshots, loaded)
		rev = r.Store.Revision(userID)
		return nil
	})

	var errs []error
	for i := range snapshots {
		row := snapshots[i].RemoteRow(userID)
		if err := r.Remote.Upsert(ctx, row); err != nil {
			r.Log.Error("progress upsert failed",
				zap.Uint("userId", userID),
				zap.String("courseId", row.CourseID),
				zap.Error(err))
			monitoring.SyncPushRowCounter.WithLabelValues("error").Inc()
			errs = append(errs, err)
			continue
		}
		monitoring.SyncPushRowCounter.WithLabelValues("ok").Inc()
	}

	if len(errs) > 0 {
		monitoring.SyncPushCounter.WithLabelValues("error").Inc()
		return errors.Join(errs...)
	}

	r.Store.WithLock(userID, func() error {
		// 推送期间落了新写入就保留脏标记，留给下一次触发
		if r.Store.Revision(userID) == rev {
			r.Store.ClearDirty(ctx, userID)
		}
		return nil
	})

	monitoring.SyncPushCounter.WithLabelValues("ok").Inc()
	return nil
}

// Pull 拉取远端全部行并整体覆盖本地blob
// 覆盖前先冲刷未推送的本地变更，冲刷失败则放弃覆盖，避免丢数据
// 失败只记日志不上抛，下一次生命周期触发会重试
func (r *Reconciler) Pull(ctx context.Context, userID uint) {
	ctx, span := tracing.Tracer.Start(ctx, "reconciler.pull")
	span.SetAttributes(attribute.Int("user.id", int(userID)))
	defer span.End()

	if r.Store.IsDirty(ctx, userID) {
		if err := r.Push(ctx, userID); err != nil {
			r.Log.Warn("pending local progress could not be flushed, skipping pull",
				zap.Uint("userId", userID), zap.Error(err))
			monitoring.SyncPullCounter.WithLabelValues("skipped").Inc()
			return
		}
	}

	rows, err := r.Remote.ListByUser(ctx, userID)
	if err != nil {
		r.Log.Warn("progress pull failed, keeping local cache",
			zap.Uint("userId", userID), zap.Error(err))
		monitoring.SyncPullCounter.WithLabelValues("error").Inc()
		return
	}

	snapshots := make([]model.CourseProgressSnapshot, 0, len(rows))
	for i := range rows {
		snapshots = append(snapshots, rows[i].Snapshot())
	}

	err = r.Store.WithLock(userID, func() error {
		// 拉取途中又有本地写入落盘，放弃本次覆盖
		if r.Store.IsDirty(ctx, userID) {
			r.Log.Debug("local cache mutated during pull, overwrite skipped",
				zap.Uint("userId", userID))
			return nil
		}
		if err := r.Store.Save(ctx, userID, snapshots); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		r.Log.Warn("failed to overwrite local cache after pull",
			zap.Uint("userId", userID), zap.Error(err))
		monitoring.SyncPullCounter.WithLabelValues("error").Inc()
		return
	}

	monitoring.SyncPullCounter.WithLabelValues("ok").Inc()
}
