package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"course_sync_backend/pkg/monitoring"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AppState 客户端上报的应用生命周期状态
type AppState string

const (
	StateForeground AppState = "foreground"
	StateBackground AppState = "background"
	StateInactive   AppState = "inactive"
)

func ParseAppState(s string) (AppState, bool) {
	switch AppState(s) {
	case StateForeground, StateBackground, StateInactive:
		return AppState(s), true
	}
	return "", false
}

// LifecycleController 观察生命周期切换并触发推送
// 退到后台时异步冲刷（进度推送+伴生通道），不阻塞切换本身；
// 同一用户的并发冲刷经singleflight合并，前后台抖动不会堆积推送
type LifecycleController struct {
	Reconciler *Reconciler
	Quiz       *QuizChannel
	Chat       *ChatChannel
	Log        *zap.Logger

	group singleflight.Group

	mu     sync.Mutex
	states map[uint]AppState
}

func NewLifecycleController(reconciler *Reconciler, quiz *QuizChannel, chat *ChatChannel, log *zap.Logger) *LifecycleController {
	return &LifecycleController{
		Reconciler: reconciler,
		Quiz:       quiz,
		Chat:       chat,
		Log:        log,
		states:     make(map[uint]AppState),
	}
}

// OnTransition 记录状态并在离开前台时触发后台冲刷
// 冲刷结果只记日志，永不让切换失败
func (c *LifecycleController) OnTransition(userID uint, to AppState) {
	c.mu.Lock()
	from, seen := c.states[userID]
	c.states[userID] = to
	c.mu.Unlock()

	monitoring.LifecycleCounter.WithLabelValues(string(to)).Inc()

	if !seen {
		from = StateForeground
	}
	if from != StateForeground || to == StateForeground {
		return
	}

	go func() {
		if err := c.flushShared(context.Background(), userID); err != nil {
			c.Log.Warn("background flush incomplete, will retry on next transition",
				zap.Uint("userId", userID), zap.Error(err))
		}
	}()
}

// SignOut 登出前的同步冲刷：本地数据随后会被清掉，
// 这里必须等待结果并把失败交给调用方决定是否继续清除
func (c *LifecycleController) SignOut(ctx context.Context, userID uint) error {
	c.mu.Lock()
	delete(c.states, userID)
	c.mu.Unlock()

	return c.flushShared(ctx, userID)
}

func (c *LifecycleController) flushShared(ctx context.Context, userID uint) error {
	_, err, _ := c.group.Do(fmt.Sprint(userID), func() (interface{}, error) {
		return nil, c.flush(ctx, userID)
	})
	return err
}

func (c *LifecycleController) flush(ctx context.Context, userID uint) error {
	var errs []error
	if err := c.Reconciler.Push(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	if err := c.Quiz.FlushAll(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	if err := c.Chat.FlushAll(ctx, userID); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Restore 会话开始或登录后的拉取路径，内部已保证先推后拉
func (c *LifecycleController) Restore(ctx context.Context, userID uint) {
	c.mu.Lock()
	c.states[userID] = StateForeground
	c.mu.Unlock()

	c.Reconciler.Pull(ctx, userID)
}
