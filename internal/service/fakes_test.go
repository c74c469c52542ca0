package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"course_sync_backend/internal/model"
)

// 包内共享的测试替身

type fakeProgressRemote struct {
	mu       sync.Mutex
	rows     map[string]model.UserCourseProgress // courseID -> row（测试都是单用户）
	fail     map[string]bool                     // 指定课程upsert失败
	failList bool
	upserts  int
}

func newFakeProgressRemote() *fakeProgressRemote {
	return &fakeProgressRemote{
		rows: make(map[string]model.UserCourseProgress),
		fail: make(map[string]bool),
	}
}

func (f *fakeProgressRemote) Upsert(ctx context.Context, row *model.UserCourseProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.fail[row.CourseID] {
		return fmt.Errorf("upsert %s: backend unavailable", row.CourseID)
	}
	f.rows[row.CourseID] = *row
	return nil
}

func (f *fakeProgressRemote) ListByUser(ctx context.Context, userID uint) ([]model.UserCourseProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList {
		return nil, errors.New("list: backend unavailable")
	}
	var rows []model.UserCourseProgress
	for _, r := range f.rows {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (f *fakeProgressRemote) row(courseID string) (model.UserCourseProgress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[courseID]
	return r, ok
}

func (f *fakeProgressRemote) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeRegistry struct {
	modules map[string][]model.CourseModule
	err     error
}

func (f *fakeRegistry) ModulesForCourse(ctx context.Context, courseID string) ([]model.CourseModule, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.modules[courseID], nil
}

type fakeQuizRemote struct {
	mu   sync.Mutex
	rows map[string]model.QuizAnswerRecord // slideID -> row
	fail bool
}

func newFakeQuizRemote() *fakeQuizRemote {
	return &fakeQuizRemote{rows: make(map[string]model.QuizAnswerRecord)}
}

func (f *fakeQuizRemote) Upsert(ctx context.Context, row *model.QuizAnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("quiz upsert: backend unavailable")
	}
	f.rows[row.SlideID] = *row
	return nil
}

type failingArchive struct{}

func (failingArchive) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	return "", errors.New("archive unavailable")
}

type fakeChatRemote struct {
	mu   sync.Mutex
	rows map[string]model.ChatTranscript // slideID -> row
	fail bool
}

func newFakeChatRemote() *fakeChatRemote {
	return &fakeChatRemote{rows: make(map[string]model.ChatTranscript)}
}

func (f *fakeChatRemote) Upsert(ctx context.Context, row *model.ChatTranscript) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("chat upsert: backend unavailable")
	}
	f.rows[row.SlideID] = *row
	return nil
}
