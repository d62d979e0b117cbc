package game

import (
	"context"
	"sync"
	"time"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/protocol"
	"sudooom.hukum/internal/store"
)

// Game 牌局对象
// 持有引擎与各频道的事件序号，使用 RWMutex 保证并发安全
type Game struct {
	mu sync.RWMutex

	id         string
	engine     *hukum.Engine
	publicSeq  int64             // 公共频道最后分配的序号
	seatSeq    [card.Seats]int64 // 各座位私有频道最后分配的序号
	lastActive time.Time

	undo []func(ctx context.Context) error // 本次变更回滚时需要撤销的外部副作用
}

// NewGame 创建牌局对象
func NewGame(engine *hukum.Engine) *Game {
	return &Game{
		id:         engine.GameID(),
		engine:     engine,
		lastActive: time.Now(),
	}
}

// RestoreGame 从快照恢复牌局对象
func RestoreGame(snap *store.Snapshot, cfg hukum.Config) *Game {
	return &Game{
		id:         snap.State.GameID,
		engine:     hukum.Restore(snap.State, cfg),
		publicSeq:  snap.PublicSeq,
		seatSeq:    snap.SeatSeq,
		lastActive: time.Now(),
	}
}

// ID 牌局ID
func (g *Game) ID() string {
	return g.id
}

// Version 当前版本号
func (g *Game) Version() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.engine.Version()
}

// Snapshot 生成持久化快照
func (g *Game) Snapshot() *store.Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() *store.Snapshot {
	return &store.Snapshot{
		State:     g.engine.State(),
		PublicSeq: g.publicSeq,
		SeatSeq:   g.seatSeq,
	}
}

// sequence 为引擎事件分配频道序号（调用方持有写锁）
func (g *Game) sequence(events []hukum.Event) []*protocol.Event {
	version := g.engine.Version()
	out := make([]*protocol.Event, 0, len(events))

	for _, ev := range events {
		msg := protocol.FromEngine(g.id, version, ev)
		if ev.Private() {
			g.seatSeq[ev.Seat]++
			msg.Seq = g.seatSeq[ev.Seat]
		} else {
			g.publicSeq++
			msg.Seq = g.publicSeq
		}
		out = append(out, msg)
	}

	g.lastActive = time.Now()
	return out
}

// onRollback 登记回滚时执行的撤销操作（调用方持有写锁）
func (g *Game) onRollback(fn func(ctx context.Context) error) {
	g.undo = append(g.undo, fn)
}

// LastActiveTime 获取最后活跃时间
func (g *Game) LastActiveTime() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastActive
}
