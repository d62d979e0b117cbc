package task

import (
	"context"
	"time"
)

// TaskFunc 到期回调
// version 为登记时目标牌局的版本号，回调据此丢弃过期任务
type TaskFunc func(ctx context.Context, target string, version int64, metadata map[string]any) error

// Task 定时任务
type Task struct {
	ID       string         // 同ID再次登记会替换旧任务
	Target   string         // 牌局ID，同一 Target 的任务串行执行
	Version  int64          // 登记时的牌局版本
	Fn       TaskFunc       // 到期回调
	Metadata map[string]any // 附加信息，如座位、重试次数
	Deadline time.Time      // 预计到期时间，登记时设置

	rounds int // 剩余圈数
	slot   int // 所在槽位
}

// NewTask 创建任务
func NewTask(id, target string, fn TaskFunc) *Task {
	return &Task{
		ID:       id,
		Target:   target,
		Fn:       fn,
		Metadata: make(map[string]any),
	}
}

// WithVersion 设置版本号
func (t *Task) WithVersion(version int64) *Task {
	t.Version = version
	return t
}

// WithMetadata 添加附加信息
func (t *Task) WithMetadata(key string, value any) *Task {
	t.Metadata[key] = value
	return t
}

// Execute 执行回调
func (t *Task) Execute(ctx context.Context) error {
	if t.Fn == nil {
		return nil
	}
	return t.Fn(ctx, t.Target, t.Version, t.Metadata)
}
