package service

import (
	"context"
	"testing"

	"course_sync_backend/internal/localstore"
	"course_sync_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSnapshotStore() (*SnapshotStore, localstore.Store) {
	kv := localstore.NewMemoryStore()
	return NewSnapshotStore(kv, zap.NewNop()), kv
}

func TestSnapshotStoreLoadEmpty(t *testing.T) {
	store, _ := newTestSnapshotStore()
	assert.Empty(t, store.Load(context.Background(), 1))
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	store, _ := newTestSnapshotStore()
	ctx := context.Background()

	snaps := []model.CourseProgressSnapshot{
		{CourseID: "c1", Progress: 50, Modules: []model.ModuleProgressEntry{{ModuleID: "m1", Progress: 50}}},
	}
	require.NoError(t, store.Save(ctx, 1, snaps))

	loaded := store.Load(ctx, 1)
	require.Len(t, loaded, 1)
	assert.Equal(t, "c1", loaded[0].CourseID)
	assert.Equal(t, 50, loaded[0].Progress)

	// 其他用户互不可见
	assert.Empty(t, store.Load(ctx, 2))
}

func TestSnapshotStoreCorruptBlobTreatedAsEmpty(t *testing.T) {
	store, kv := newTestSnapshotStore()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "progress_1", "{not json"))
	assert.Empty(t, store.Load(ctx, 1))
}

func TestSnapshotStoreDirtyMarker(t *testing.T) {
	store, _ := newTestSnapshotStore()
	ctx := context.Background()

	assert.False(t, store.IsDirty(ctx, 1))

	store.MarkDirty(ctx, 1)
	assert.True(t, store.IsDirty(ctx, 1))
	assert.False(t, store.IsDirty(ctx, 2))

	store.ClearDirty(ctx, 1)
	assert.False(t, store.IsDirty(ctx, 1))
}

func TestSnapshotStoreRevisionAdvancesOnSave(t *testing.T) {
	store, _ := newTestSnapshotStore()
	ctx := context.Background()

	before := store.Revision(1)
	require.NoError(t, store.Save(ctx, 1, nil))
	assert.Greater(t, store.Revision(1), before)

	// 别的用户的写入不影响本用户的序号
	other := store.Revision(2)
	require.NoError(t, store.Save(ctx, 1, nil))
	assert.Equal(t, other, store.Revision(2))
}
