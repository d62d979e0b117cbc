package task

import (
	"sync"
	"time"
)

// DefaultSlots 默认槽位数，tick 为 1s 时一圈一分钟
const DefaultSlots = 60

// TimeWheel 时间轮
// 自身不持有时钟，由调用方按 tick 调用 Advance；每个任务ID只会在一个槽位中
type TimeWheel struct {
	mu     sync.Mutex
	tick   time.Duration
	slots  []map[string]*Task
	cursor int
	byID   map[string]*Task
}

// NewTimeWheel 创建时间轮
func NewTimeWheel(tick time.Duration, slots int) *TimeWheel {
	if tick <= 0 {
		tick = time.Second
	}
	if slots <= 0 {
		slots = DefaultSlots
	}

	w := &TimeWheel{
		tick:  tick,
		slots: make([]map[string]*Task, slots),
		byID:  make(map[string]*Task),
	}
	for i := range w.slots {
		w.slots[i] = make(map[string]*Task)
	}
	return w
}

// Tick 每格时长
func (w *TimeWheel) Tick() time.Duration {
	return w.tick
}

// TicksFor 时长换算为格数，向上取整，至少 1 格
func (w *TimeWheel) TicksFor(d time.Duration) int {
	return max(int((d+w.tick-1)/w.tick), 1)
}

// Schedule 在 d 之后到期，替换同ID的旧任务
func (w *TimeWheel) Schedule(t *Task, d time.Duration) {
	ticks := w.TicksFor(d)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.removeLocked(t.ID)

	size := len(w.slots)
	t.slot = (w.cursor + ticks) % size
	t.rounds = (ticks - 1) / size
	t.Deadline = time.Now().Add(time.Duration(ticks) * w.tick)

	w.slots[t.slot][t.ID] = t
	w.byID[t.ID] = t
}

// Cancel 取消任务，任务不存在时返回 false
func (w *TimeWheel) Cancel(taskID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.removeLocked(taskID)
}

func (w *TimeWheel) removeLocked(taskID string) bool {
	t, ok := w.byID[taskID]
	if !ok {
		return false
	}
	delete(w.slots[t.slot], taskID)
	delete(w.byID, taskID)
	return true
}

// Advance 前进一格，返回到期任务
func (w *TimeWheel) Advance() []*Task {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cursor = (w.cursor + 1) % len(w.slots)
	slot := w.slots[w.cursor]

	var due []*Task
	for id, t := range slot {
		if t.rounds > 0 {
			t.rounds--
			continue
		}
		due = append(due, t)
		delete(slot, id)
		delete(w.byID, id)
	}
	return due
}

// Len 等待中的任务数
func (w *TimeWheel) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byID)
}
