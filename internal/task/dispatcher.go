package task

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
)

// Dispatcher 到期任务执行器
// 按 Target 分片到固定协程，同一牌局的任务按到期顺序串行执行
type Dispatcher struct {
	queues []chan *Task
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewDispatcher 创建执行器
func NewDispatcher(shards, queueSize int) *Dispatcher {
	if shards <= 0 {
		shards = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	d := &Dispatcher{
		queues: make([]chan *Task, shards),
		logger: slog.Default().With("component", "TaskDispatcher"),
	}
	for i := range d.queues {
		d.queues[i] = make(chan *Task, queueSize)
	}
	return d
}

// Start 启动分片协程，ctx 取消后退出，未执行的任务被丢弃
func (d *Dispatcher) Start(ctx context.Context) {
	for i, q := range d.queues {
		d.wg.Add(1)
		go d.run(ctx, i, q)
	}
}

// Dispatch 投递任务；队列满时阻塞，ctx 取消时返回 false
func (d *Dispatcher) Dispatch(ctx context.Context, t *Task) bool {
	select {
	case d.queues[d.shard(t.Target)] <- t:
		return true
	case <-ctx.Done():
		return false
	}
}

// Wait 等待所有分片协程退出
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) shard(target string) int {
	h := fnv.New32a()
	h.Write([]byte(target))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) run(ctx context.Context, shard int, q chan *Task) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-q:
			d.execute(ctx, shard, t)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, shard int, t *Task) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Task panicked", "shard", shard, "taskId", t.ID, "target", t.Target, "panic", r)
		}
	}()

	if err := t.Execute(ctx); err != nil {
		d.logger.Warn("Task failed",
			"shard", shard,
			"taskId", t.ID,
			"target", t.Target,
			"version", t.Version,
			"error", err)
		return
	}
	d.logger.Debug("Task executed", "shard", shard, "taskId", t.ID, "target", t.Target)
}
