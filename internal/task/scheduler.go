package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
	ErrInvalidTask    = errors.New("task must have an id")
)

// Scheduler 回合计时调度器
// 时间轮按 tick 前进，到期任务交给 Dispatcher 执行
type Scheduler struct {
	wheel      *TimeWheel
	dispatcher *Dispatcher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	logger *slog.Logger
}

// NewScheduler 创建调度器
func NewScheduler(workers int, tick time.Duration) *Scheduler {
	return &Scheduler{
		wheel:      NewTimeWheel(tick, DefaultSlots),
		dispatcher: NewDispatcher(workers, 0),
		logger:     slog.Default().With("component", "TaskScheduler"),
	}
}

// Start 启动调度器
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	s.dispatcher.Start(ctx)
	go s.run(ctx, s.done)

	s.logger.Info("Scheduler started", "tick", s.wheel.Tick())
	return nil
}

// Stop 停止调度器，等待中的任务被丢弃；可重复调用
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.dispatcher.Wait()

	s.logger.Info("Scheduler stopped", "dropped", s.wheel.Len())
}

// Running 是否运行中
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// After 在 d 之后执行任务，同ID的旧任务被替换
func (s *Scheduler) After(d time.Duration, t *Task) error {
	if t == nil || t.ID == "" {
		return ErrInvalidTask
	}
	if !s.Running() {
		return ErrNotRunning
	}

	s.wheel.Schedule(t, d)
	s.logger.Debug("Task scheduled", "taskId", t.ID, "target", t.Target, "version", t.Version, "after", d)
	return nil
}

// RemoveTask 取消任务，不存在时返回 false
func (s *Scheduler) RemoveTask(taskID string) bool {
	return s.wheel.Cancel(taskID)
}

// Pending 等待中的任务数
func (s *Scheduler) Pending() int {
	return s.wheel.Len()
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.wheel.Tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range s.wheel.Advance() {
				if !s.dispatcher.Dispatch(ctx, t) {
					return
				}
			}
		}
	}
}
