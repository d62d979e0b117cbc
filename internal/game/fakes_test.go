package game

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"sudooom.hukum/internal/model"
	"sudooom.hukum/internal/protocol"
	"sudooom.hukum/internal/store"
	"sudooom.hukum/internal/task"
)

type fakeUnlocker struct{}

func (fakeUnlocker) Unlock(context.Context) error { return nil }

// fakeStore 内存版 StateStore
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[string]*store.Snapshot
	seats     map[string]map[int]int64
	rosters   map[string][]int64
	archived  []string
	busy      bool
	saveErr   error
	saves     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshots: make(map[string]*store.Snapshot),
		seats:     make(map[string]map[int]int64),
		rosters:   make(map[string][]int64),
	}
}

func (f *fakeStore) Lock(ctx context.Context, gameID string) (store.Unlocker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return nil, store.ErrLockBusy
	}
	return fakeUnlocker{}, nil
}

func (f *fakeStore) LoadSnapshot(ctx context.Context, gameID string) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[gameID]
	if !ok {
		return nil, store.ErrSnapshotNotFound
	}
	cp := *snap
	cp.State = snap.State.Clone()
	return &cp, nil
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, snap *store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *snap
	cp.State = snap.State.Clone()
	f.snapshots[snap.State.GameID] = &cp
	f.saves++
	return nil
}

func (f *fakeStore) ClaimSeat(ctx context.Context, gameID string, seat int, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seats, ok := f.seats[gameID]
	if !ok {
		seats = make(map[int]int64)
		f.seats[gameID] = seats
	}
	if owner, ok := seats[seat]; ok {
		return owner == userID, nil
	}
	seats[seat] = userID
	return true, nil
}

func (f *fakeStore) ReleaseSeat(ctx context.Context, gameID string, seat int, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seats[gameID][seat] == userID {
		delete(f.seats[gameID], seat)
	}
	return nil
}

func (f *fakeStore) SetRoster(ctx context.Context, gameID string, userIDs ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters[gameID] = append([]int64{}, userIDs...)
	return nil
}

func (f *fakeStore) InRoster(ctx context.Context, gameID string, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := f.rosters[gameID]
	if len(roster) == 0 {
		return true, nil
	}
	for _, id := range roster {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Archive(ctx context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, gameID)
	return nil
}

func (f *fakeStore) seatOwner(gameID string, seat int) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.seats[gameID][seat]
	return owner, ok
}

// fakePublisher 记录发布的事件
type fakePublisher struct {
	mu     sync.Mutex
	events []*protocol.Event
}

func (f *fakePublisher) Publish(ctx context.Context, ev *protocol.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) bySubject(subject string) []*protocol.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*protocol.Event
	for _, ev := range f.events {
		if ev.Subject() == subject {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeHistory 记录写入的牌局结果
type fakeHistory struct {
	mu      sync.Mutex
	records []*model.GameRecord
}

func (f *fakeHistory) RecordGame(ctx context.Context, rec *model.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

// fakeTimers 只登记任务，由测试手动触发
type fakeTimers struct {
	mu     sync.Mutex
	tasks  map[string]*task.Task
	delays map[string]time.Duration
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{
		tasks:  make(map[string]*task.Task),
		delays: make(map[string]time.Duration),
	}
}

func (f *fakeTimers) After(d time.Duration, t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[t.ID] = t
	f.delays[t.ID] = d
	return nil
}

func (f *fakeTimers) RemoveTask(taskID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tasks[taskID]
	delete(f.tasks, taskID)
	delete(f.delays, taskID)
	return ok
}

func (f *fakeTimers) get(taskID string) (*task.Task, time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[taskID], f.delays[taskID]
}

// fakeAuth 令牌格式 user-{id}
type fakeAuth struct{}

func (fakeAuth) CurrentUser(token string) (int64, error) {
	id, ok := strings.CutPrefix(token, "user-")
	if !ok {
		return 0, errors.New("invalid token")
	}
	return strconv.ParseInt(id, 10, 64)
}

func tokenFor(userID int64) string {
	return "user-" + strconv.FormatInt(userID, 10)
}
