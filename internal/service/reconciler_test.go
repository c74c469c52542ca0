package service

import (
	"context"
	"testing"

	"course_sync_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestReconciler(remote *fakeProgressRemote) (*Reconciler, *ProgressService, *SnapshotStore) {
	store, _ := newTestSnapshotStore()
	progress := NewProgressService(store, &fakeRegistry{}, zap.NewNop())
	return NewReconciler(store, remote, zap.NewNop()), progress, store
}

func TestPushUpsertsAllSnapshots(t *testing.T) {
	remote := newFakeProgressRemote()
	r, progress, store := newTestReconciler(remote)
	ctx := context.Background()

	advance(t, progress, "c1", "m1", 4, 10)

	require.NoError(t, r.Push(ctx, 1))

	row, ok := remote.row("c1")
	require.True(t, ok)
	assert.Equal(t, uint(1), row.UserID)
	assert.Equal(t, 50, row.Progress)
	assert.False(t, store.IsDirty(ctx, 1))
}

func TestPushIdempotent(t *testing.T) {
	remote := newFakeProgressRemote()
	r, progress, _ := newTestReconciler(remote)
	ctx := context.Background()

	advance(t, progress, "c1", "m1", 4, 10)
	advance(t, progress, "c2", "m1", 9, 10)

	require.NoError(t, r.Push(ctx, 1))
	first := map[string]model.UserCourseProgress{}
	for id := range map[string]bool{"c1": true, "c2": true} {
		row, ok := remote.row(id)
		require.True(t, ok)
		first[id] = row
	}

	require.NoError(t, r.Push(ctx, 1))

	assert.Equal(t, 2, remote.rowCount(), "no duplicate rows after repeated push")
	for id, before := range first {
		after, ok := remote.row(id)
		require.True(t, ok)
		assert.Equal(t, before.Progress, after.Progress, "course %s drifted", id)
	}
}

func TestPushPartialFailureIsolatesRows(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.fail["c1"] = true
	r, progress, store := newTestReconciler(remote)
	ctx := context.Background()

	advance(t, progress, "c1", "m1", 4, 10)
	advance(t, progress, "c2", "m1", 4, 10)

	err := r.Push(ctx, 1)
	require.Error(t, err)

	// 失败课程不影响其余课程的upsert
	_, ok := remote.row("c2")
	assert.True(t, ok)
	// 有失败行则脏标记保留，下次重试
	assert.True(t, store.IsDirty(ctx, 1))
	// 本地数据原样保留
	assert.Len(t, store.Load(ctx, 1), 2)
}

func TestPushKeepsDirtyWhenMutatedConcurrently(t *testing.T) {
	remote := newFakeProgressRemote()
	r, progress, store := newTestReconciler(remote)
	ctx := context.Background()

	advance(t, progress, "c1", "m1", 4, 10)
	require.NoError(t, r.Push(ctx, 1))
	assert.False(t, store.IsDirty(ctx, 1))

	// 推送后的新写入重新置脏
	advance(t, progress, "c1", "m1", 5, 10)
	assert.True(t, store.IsDirty(ctx, 1))
}

func TestPullOverwritesLocal(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.rows["c1"] = model.UserCourseProgress{
		UserID:   1,
		CourseID: "c1",
		Progress: 75,
		Modules:  []model.ModuleProgressEntry{{ModuleID: "m1", Progress: 75}},
	}
	r, _, store := newTestReconciler(remote)
	ctx := context.Background()

	// 本地有旧数据但无脏标记（上次推送已完成）
	require.NoError(t, store.Save(ctx, 1, []model.CourseProgressSnapshot{{CourseID: "c9", Progress: 10}}))

	r.Pull(ctx, 1)

	loaded := store.Load(ctx, 1)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c1", loaded[0].CourseID)
	assert.Equal(t, 75, loaded[0].Progress)
}

func TestPullFlushesPendingBeforeOverwrite(t *testing.T) {
	remote := newFakeProgressRemote()
	r, progress, store := newTestReconciler(remote)
	ctx := context.Background()

	// 本地有未推送的进度
	advance(t, progress, "c1", "m1", 9, 10)
	require.True(t, store.IsDirty(ctx, 1))

	r.Pull(ctx, 1)

	// 先推后拉：本地增量先到了远端，覆盖不会丢数据
	row, ok := remote.row("c1")
	require.True(t, ok)
	assert.Equal(t, 100, row.Progress)

	loaded := store.Load(ctx, 1)
	require.Len(t, loaded, 1)
	assert.Equal(t, 100, loaded[0].Progress)
}

func TestPullSkipsOverwriteWhenFlushFails(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.fail["c1"] = true
	remote.rows["c2"] = model.UserCourseProgress{UserID: 1, CourseID: "c2", Progress: 20}
	r, progress, store := newTestReconciler(remote)
	ctx := context.Background()

	advance(t, progress, "c1", "m1", 4, 10)

	r.Pull(ctx, 1)

	// 冲刷失败时放弃覆盖，本地未推送的进度保住
	loaded := store.Load(ctx, 1)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c1", loaded[0].CourseID)
}

func TestPullBackendFailureLeavesLocalIntact(t *testing.T) {
	remote := newFakeProgressRemote()
	remote.failList = true
	r, _, store := newTestReconciler(remote)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, []model.CourseProgressSnapshot{{CourseID: "c1", Progress: 30}}))

	// 不 panic、不上抛，本地不动
	r.Pull(ctx, 1)

	loaded := store.Load(ctx, 1)
	require.Len(t, loaded, 1)
	assert.Equal(t, 30, loaded[0].Progress)
}
