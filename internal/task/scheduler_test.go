package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noop(ctx context.Context, target string, version int64, metadata map[string]any) error {
	return nil
}

// TestTaskExecutePassesVersion 执行时传入登记时的版本与附加信息
func TestTaskExecutePassesVersion(t *testing.T) {
	var gotVersion int64
	var gotSeat any
	task := NewTask("turn:game-1", "game-1", func(ctx context.Context, target string, version int64, metadata map[string]any) error {
		gotVersion = version
		gotSeat = metadata["seat"]
		return nil
	}).WithVersion(7).WithMetadata("seat", 2)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("执行失败: %v", err)
	}
	if gotVersion != 7 {
		t.Errorf("期望 version = 7, 实际 = %d", gotVersion)
	}
	if gotSeat != 2 {
		t.Errorf("期望 seat = 2, 实际 = %v", gotSeat)
	}

	if err := NewTask("empty", "game-1", nil).Execute(context.Background()); err != nil {
		t.Errorf("没有回调的任务应直接返回, 实际 = %v", err)
	}
}

// TestTimeWheelAdvance 按格前进取出到期任务
func TestTimeWheelAdvance(t *testing.T) {
	wheel := NewTimeWheel(time.Second, 8)

	wheel.Schedule(NewTask("a", "game-1", noop), time.Second)
	wheel.Schedule(NewTask("b", "game-1", noop), 3*time.Second)

	if due := wheel.Advance(); len(due) != 1 || due[0].ID != "a" {
		t.Fatalf("第 1 格期望 a, 实际 = %v", due)
	}
	if due := wheel.Advance(); len(due) != 0 {
		t.Fatalf("第 2 格期望为空, 实际 = %v", due)
	}
	if due := wheel.Advance(); len(due) != 1 || due[0].ID != "b" {
		t.Fatalf("第 3 格期望 b, 实际 = %v", due)
	}
	if wheel.Len() != 0 {
		t.Errorf("期望时间轮为空, 实际 = %d", wheel.Len())
	}
}

// TestTimeWheelMultipleRounds 超过一圈的延迟
func TestTimeWheelMultipleRounds(t *testing.T) {
	wheel := NewTimeWheel(time.Second, 4)
	wheel.Schedule(NewTask("long", "game-1", noop), 10*time.Second)

	for i := 1; i < 10; i++ {
		if due := wheel.Advance(); len(due) != 0 {
			t.Fatalf("第 %d 格不应到期, 实际 = %v", i, due)
		}
	}
	if due := wheel.Advance(); len(due) != 1 {
		t.Fatalf("第 10 格应到期, 实际 = %v", due)
	}
}

// TestTimeWheelReplaceAndCancel 同ID替换与取消
func TestTimeWheelReplaceAndCancel(t *testing.T) {
	wheel := NewTimeWheel(time.Second, 8)

	wheel.Schedule(NewTask("turn:g", "g", noop).WithVersion(1), time.Second)
	wheel.Schedule(NewTask("turn:g", "g", noop).WithVersion(2), 2*time.Second)

	if wheel.Len() != 1 {
		t.Fatalf("同ID任务应被替换, 实际任务数 = %d", wheel.Len())
	}
	if due := wheel.Advance(); len(due) != 0 {
		t.Fatalf("旧任务不应到期, 实际 = %v", due)
	}
	due := wheel.Advance()
	if len(due) != 1 || due[0].Version != 2 {
		t.Fatalf("期望版本 2 的任务到期, 实际 = %v", due)
	}

	wheel.Schedule(NewTask("turn:g", "g", noop), 5*time.Second)
	if !wheel.Cancel("turn:g") {
		t.Error("期望取消成功")
	}
	if wheel.Cancel("turn:g") {
		t.Error("重复取消应返回 false")
	}
	if wheel.Len() != 0 {
		t.Errorf("期望时间轮为空, 实际 = %d", wheel.Len())
	}
}

// TestTicksFor 时长换算
func TestTicksFor(t *testing.T) {
	wheel := NewTimeWheel(100*time.Millisecond, DefaultSlots)

	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 1},
		{50 * time.Millisecond, 1},
		{100 * time.Millisecond, 1},
		{250 * time.Millisecond, 3},
		{30 * time.Second, 300},
	}

	for _, tt := range tests {
		if got := wheel.TicksFor(tt.d); got != tt.want {
			t.Errorf("TicksFor(%v) 期望 %d, 实际 = %d", tt.d, tt.want, got)
		}
	}
}

// TestDispatcherSerializesTarget 同一牌局的任务不会并发执行
func TestDispatcherSerializesTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(4, 16)
	d.Start(ctx)
	defer func() {
		cancel()
		d.Wait()
	}()

	var (
		mu      sync.Mutex
		order   []int
		running atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)

	for i := range 10 {
		wg.Add(1)
		task := NewTask("t", "game-1", func(ctx context.Context, target string, version int64, metadata map[string]any) error {
			defer wg.Done()
			if running.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, int(version))
			mu.Unlock()
			running.Add(-1)
			return nil
		}).WithVersion(int64(i))

		if !d.Dispatch(ctx, task) {
			t.Fatal("投递失败")
		}
	}
	wg.Wait()

	if overlap.Load() {
		t.Error("同一牌局的任务出现并发执行")
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("期望按投递顺序执行, 实际 = %v", order)
		}
	}
}

// TestSchedulerStartStop 启动与停止
func TestSchedulerStartStop(t *testing.T) {
	scheduler := NewScheduler(2, 10*time.Millisecond)

	if err := scheduler.After(time.Second, NewTask("t", "g", noop)); err != ErrNotRunning {
		t.Errorf("未启动时应返回 ErrNotRunning, 实际 = %v", err)
	}

	if err := scheduler.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	if !scheduler.Running() {
		t.Error("期望调度器运行中")
	}
	if err := scheduler.Start(); err != ErrAlreadyRunning {
		t.Errorf("重复启动应返回 ErrAlreadyRunning, 实际 = %v", err)
	}
	if err := scheduler.After(time.Second, NewTask("", "g", noop)); err != ErrInvalidTask {
		t.Errorf("空ID应返回 ErrInvalidTask, 实际 = %v", err)
	}

	scheduler.Stop()
	if scheduler.Running() {
		t.Error("期望调度器已停止")
	}
	scheduler.Stop()
}

// TestSchedulerExecutesTask 任务到期执行
func TestSchedulerExecutesTask(t *testing.T) {
	scheduler := NewScheduler(2, 10*time.Millisecond)
	if err := scheduler.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	defer scheduler.Stop()

	done := make(chan int64, 1)
	task := NewTask("turn:game-1", "game-1", func(ctx context.Context, target string, version int64, metadata map[string]any) error {
		if target == "game-1" {
			done <- version
		}
		return nil
	}).WithVersion(3)

	if err := scheduler.After(30*time.Millisecond, task); err != nil {
		t.Fatalf("添加任务失败: %v", err)
	}

	select {
	case v := <-done:
		if v != 3 {
			t.Errorf("期望 version = 3, 实际 = %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("任务未在预期时间内执行")
	}
}

// TestSchedulerRemoveTask 取消后的任务不再执行
func TestSchedulerRemoveTask(t *testing.T) {
	scheduler := NewScheduler(1, 10*time.Millisecond)
	if err := scheduler.Start(); err != nil {
		t.Fatalf("启动调度器失败: %v", err)
	}
	defer scheduler.Stop()

	var executed atomic.Int32
	task := NewTask("turn:game-1", "game-1", func(ctx context.Context, target string, version int64, metadata map[string]any) error {
		executed.Add(1)
		return nil
	})

	if err := scheduler.After(50*time.Millisecond, task); err != nil {
		t.Fatalf("添加任务失败: %v", err)
	}
	if scheduler.Pending() != 1 {
		t.Errorf("期望 1 个等待中的任务, 实际 = %d", scheduler.Pending())
	}
	if !scheduler.RemoveTask("turn:game-1") {
		t.Fatal("期望取消成功")
	}

	time.Sleep(150 * time.Millisecond)
	if executed.Load() != 0 {
		t.Errorf("已取消的任务不应执行, 实际执行 %d 次", executed.Load())
	}
}
