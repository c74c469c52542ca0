package service

import (
	"context"
	"encoding/json"
	"testing"

	"course_sync_backend/internal/localstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQuizChannelFlushUpsertsAndClearsBuffer(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeQuizRemote()
	ch := NewQuizChannel(kv, remote, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, ch.Record(ctx, 1, "c1", "s1", json.RawMessage(`{"answer":2}`)))
	require.NoError(t, ch.Record(ctx, 1, "c1", "s2", json.RawMessage(`{"answer":0}`)))
	require.NoError(t, ch.Record(ctx, 1, "c2", "s3", json.RawMessage(`{"answer":1}`)))

	require.NoError(t, ch.FlushAll(ctx, 1))

	assert.Len(t, remote.rows, 3)
	assert.Equal(t, "c1", remote.rows["s1"].CourseID)
	assert.JSONEq(t, `{"answer":2}`, string(remote.rows["s1"].Payload))

	// 缓冲是一次性数据，刷成功后删除
	keys, err := kv.Keys(ctx, "u1:")
	require.NoError(t, err)
	assert.Empty(t, keys)

	// 空缓冲再刷是安全的
	require.NoError(t, ch.FlushAll(ctx, 1))
	assert.Len(t, remote.rows, 3)
}

func TestQuizChannelFlushFailureRetainsBuffer(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeQuizRemote()
	remote.fail = true
	ch := NewQuizChannel(kv, remote, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, ch.Record(ctx, 1, "c1", "s1", json.RawMessage(`{"answer":2}`)))

	err := ch.FlushAll(ctx, 1)
	require.Error(t, err)

	// 缓冲保留，待下次生命周期触发重试
	keys, kerr := kv.Keys(ctx, "u1:"+QuizBufferPrefix)
	require.NoError(t, kerr)
	assert.Len(t, keys, 1)

	// 后端恢复后重试成功
	remote.fail = false
	require.NoError(t, ch.FlushAll(ctx, 1))
	assert.Len(t, remote.rows, 1)
	keys, kerr = kv.Keys(ctx, "u1:"+QuizBufferPrefix)
	require.NoError(t, kerr)
	assert.Empty(t, keys)
}

func TestChannelBuffersAreScopedPerUser(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeQuizRemote()
	ch := NewQuizChannel(kv, remote, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, ch.Record(ctx, 1, "c1", "s1", json.RawMessage(`{}`)))
	require.NoError(t, ch.Record(ctx, 2, "c1", "s2", json.RawMessage(`{}`)))

	require.NoError(t, ch.FlushAll(ctx, 1))

	// 只刷了用户1的缓冲
	require.Len(t, remote.rows, 1)
	assert.Equal(t, uint(1), remote.rows["s1"].UserID)

	keys, err := kv.Keys(ctx, "u2:"+QuizBufferPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestChatChannelFlush(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeChatRemote()
	ch := NewChatChannel(kv, remote, nil, zap.NewNop())
	ctx := context.Background()

	messages := json.RawMessage(`[{"role":"user","content":"why pointers?"}]`)
	require.NoError(t, ch.Record(ctx, 1, "c1", "s1", messages))

	require.NoError(t, ch.FlushAll(ctx, 1))

	require.Len(t, remote.rows, 1)
	assert.JSONEq(t, string(messages), string(remote.rows["s1"].Messages))

	keys, err := kv.Keys(ctx, "u1:"+ChatBufferPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestChatChannelArchiveFailureDoesNotFailFlush(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeChatRemote()
	ch := NewChatChannel(kv, remote, failingArchive{}, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, ch.Record(ctx, 1, "c1", "s1", json.RawMessage(`[]`)))

	// 归档失败不影响冲刷成败
	require.NoError(t, ch.FlushAll(ctx, 1))
	assert.Len(t, remote.rows, 1)
}

func TestCorruptBufferIsDropped(t *testing.T) {
	kv := localstore.NewMemoryStore()
	remote := newFakeQuizRemote()
	ch := NewQuizChannel(kv, remote, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "u1:"+QuizBufferPrefix+"c1", "{broken"))

	require.NoError(t, ch.FlushAll(ctx, 1))
	assert.Empty(t, remote.rows)

	keys, err := kv.Keys(ctx, "u1:")
	require.NoError(t, err)
	assert.Empty(t, keys, "unrecoverable buffer is discarded")
}
