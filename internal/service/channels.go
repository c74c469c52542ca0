package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"course_sync_backend/internal/localstore"
	"course_sync_backend/internal/model"
	"course_sync_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// 伴生通道的本地缓冲键前缀，与移动端的AsyncStorage键保持一致
const (
	QuizBufferPrefix = "course-progress-"
	ChatBufferPrefix = "course-chat-"
)

// QuizAnswerRemote 测验答案远端表访问口
type QuizAnswerRemote interface {
	Upsert(ctx context.Context, row *model.QuizAnswerRecord) error
}

// ChatTranscriptRemote 聊天记录远端表访问口
type ChatTranscriptRemote interface {
	Upsert(ctx context.Context, row *model.ChatTranscript) error
}

// QuizBufferEntry 一张幻灯片的测验答案缓冲条目
type QuizBufferEntry struct {
	EntryID    string          `json:"entryId"`
	SlideID    string          `json:"slideId"`
	Payload    json.RawMessage `json:"payload"`
	AnsweredAt time.Time       `json:"answeredAt"`
}

// ChatBufferEntry 一张幻灯片的聊天记录缓冲条目
type ChatBufferEntry struct {
	EntryID  string          `json:"entryId"`
	SlideID  string          `json:"slideId"`
	Messages json.RawMessage `json:"messages"`
}

// flushFunc 把一个课程缓冲的原始JSON刷到远端，失败则缓冲保留
type flushFunc func(ctx context.Context, userID uint, courseID string, raw string) error

// ChannelFlusher 伴生同步通道：本地按课程缓冲，生命周期触发时扫描前缀、
// 逐课程upsert到远端，成功后删除对应缓冲键。与进度不同，缓冲是一次性数据，
// 刷成功后本地副本即可丢弃
type ChannelFlusher struct {
	Name   string
	prefix string
	kv     localstore.Store
	flush  flushFunc
	log    *zap.Logger

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newChannelFlusher(name, prefix string, kv localstore.Store, flush flushFunc, log *zap.Logger) *ChannelFlusher {
	return &ChannelFlusher{
		Name:   name,
		prefix: prefix,
		kv:     kv,
		flush:  flush,
		log:    log,
		locks:  make(map[uint]*sync.Mutex),
	}
}

func (f *ChannelFlusher) userLock(userID uint) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		f.locks[userID] = l
	}
	return l
}

func (f *ChannelFlusher) scanPrefix(userID uint) string {
	return fmt.Sprintf("u%d:%s", userID, f.prefix)
}

func (f *ChannelFlusher) bufferKey(userID uint, courseID string) string {
	return f.scanPrefix(userID) + courseID
}

// appendEntry 读-改-写一个课程缓冲，entry追加到JSON数组尾部
func (f *ChannelFlusher) appendEntry(ctx context.Context, userID uint, courseID string, entry interface{}) error {
	l := f.userLock(userID)
	l.Lock()
	defer l.Unlock()

	key := f.bufferKey(userID, courseID)
	var entries []json.RawMessage
	if raw, ok, err := f.kv.Get(ctx, key); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			f.log.Warn("channel buffer corrupt, starting fresh",
				zap.String("channel", f.Name), zap.String("key", key), zap.Error(err))
			entries = nil
		}
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	entries = append(entries, encoded)

	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return f.kv.Set(ctx, key, string(raw))
}

// FlushAll 刷该用户全部课程缓冲，单个课程失败不影响其余课程
func (f *ChannelFlusher) FlushAll(ctx context.Context, userID uint) error {
	l := f.userLock(userID)
	l.Lock()
	defer l.Unlock()

	keys, err := f.kv.Keys(ctx, f.scanPrefix(userID))
	if err != nil {
		monitoring.ChannelFlushCounter.WithLabelValues(f.Name, "error").Inc()
		return err
	}

	var firstErr error
	for _, key := range keys {
		courseID := strings.TrimPrefix(key, f.scanPrefix(userID))

		raw, ok, err := f.kv.Get(ctx, key)
		if err != nil || !ok {
			continue
		}

		if err := f.flush(ctx, userID, courseID, raw); err != nil {
			f.log.Error("channel flush failed, buffer retained",
				zap.String("channel", f.Name),
				zap.Uint("userId", userID),
				zap.String("courseId", courseID),
				zap.Error(err))
			monitoring.ChannelFlushCounter.WithLabelValues(f.Name, "error").Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if err := f.kv.Delete(ctx, key); err != nil {
			// 删除失败只会导致下次重复upsert，幂等无害
			f.log.Warn("flushed buffer could not be deleted",
				zap.String("channel", f.Name), zap.String("key", key), zap.Error(err))
		}
		monitoring.ChannelFlushCounter.WithLabelValues(f.Name, "ok").Inc()
	}
	return firstErr
}

// QuizChannel 测验答案同步通道
type QuizChannel struct {
	*ChannelFlusher
}

func NewQuizChannel(kv localstore.Store, remote QuizAnswerRemote, log *zap.Logger) *QuizChannel {
	flush := func(ctx context.Context, userID uint, courseID string, raw string) error {
		var entries []QuizBufferEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			// 缓冲本身坏了，重试也救不回来，丢弃
			log.Warn("quiz buffer corrupt, dropping",
				zap.Uint("userId", userID), zap.String("courseId", courseID), zap.Error(err))
			return nil
		}
		for _, e := range entries {
			row := &model.QuizAnswerRecord{
				UserID:     userID,
				SlideID:    e.SlideID,
				CourseID:   courseID,
				Payload:    datatypes.JSON(e.Payload),
				AnsweredAt: e.AnsweredAt,
			}
			if err := remote.Upsert(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}
	return &QuizChannel{newChannelFlusher("quiz", QuizBufferPrefix, kv, flush, log)}
}

// Record 缓冲一条测验答案，等待下一次生命周期触发冲刷
func (q *QuizChannel) Record(ctx context.Context, userID uint, courseID, slideID string, payload json.RawMessage) error {
	return q.appendEntry(ctx, userID, courseID, QuizBufferEntry{
		EntryID:    model.GenerateUUID(),
		SlideID:    slideID,
		Payload:    payload,
		AnsweredAt: time.Now(),
	})
}

// ChatChannel 聊天记录同步通道，刷成功后可选归档到对象存储
type ChatChannel struct {
	*ChannelFlusher
}

func NewChatChannel(kv localstore.Store, remote ChatTranscriptRemote, archive ArchiveProvider, log *zap.Logger) *ChatChannel {
	flush := func(ctx context.Context, userID uint, courseID string, raw string) error {
		var entries []ChatBufferEntry
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			log.Warn("chat buffer corrupt, dropping",
				zap.Uint("userId", userID), zap.String("courseId", courseID), zap.Error(err))
			return nil
		}
		for _, e := range entries {
			row := &model.ChatTranscript{
				UserID:   userID,
				SlideID:  e.SlideID,
				CourseID: courseID,
				Messages: datatypes.JSON(e.Messages),
			}
			if err := remote.Upsert(ctx, row); err != nil {
				return err
			}
		}

		if archive != nil {
			// 归档是尽力而为，不参与冲刷成败
			name := fmt.Sprintf("transcripts/%d/%s/%d.json", userID, courseID, time.Now().UnixMilli())
			if err := archiveBlob(ctx, archive, name, raw); err != nil {
				log.Warn("transcript archive failed",
					zap.Uint("userId", userID), zap.String("courseId", courseID), zap.Error(err))
			}
		}
		return nil
	}
	return &ChatChannel{newChannelFlusher("chat", ChatBufferPrefix, kv, flush, log)}
}

// Record 缓冲一张幻灯片的聊天记录
func (c *ChatChannel) Record(ctx context.Context, userID uint, courseID, slideID string, messages json.RawMessage) error {
	return c.appendEntry(ctx, userID, courseID, ChatBufferEntry{
		EntryID:  model.GenerateUUID(),
		SlideID:  slideID,
		Messages: messages,
	})
}
