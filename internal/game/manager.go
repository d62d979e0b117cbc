package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// GameManager 牌局本地缓存
// Redis 快照是权威状态，每次变更在锁内保存后才写入缓存，淘汰时无需回写
type GameManager struct {
	games sync.Map // gameId -> *Game

	// LRU 配置
	maxGames     int
	evictTimeout time.Duration
	evictTicker  *time.Ticker

	stopChan chan struct{} // 停止信号通道
	stopOnce sync.Once

	logger *slog.Logger
}

// NewGameManager 创建牌局管理器
func NewGameManager(maxGames int, evictTimeout, evictInterval time.Duration) *GameManager {
	if evictInterval <= 0 {
		evictInterval = time.Minute
	}

	m := &GameManager{
		maxGames:     maxGames,
		evictTimeout: evictTimeout,
		evictTicker:  time.NewTicker(evictInterval),
		stopChan:     make(chan struct{}),
		logger:       slog.Default().With("component", "GameManager"),
	}

	go m.evictLoop()

	return m
}

// Get 获取牌局
func (m *GameManager) Get(gameID string) (*Game, bool) {
	val, ok := m.games.Load(gameID)
	if !ok {
		return nil, false
	}
	return val.(*Game), true
}

// Put 放入牌局，替换同ID的旧对象；超过上限时淘汰最久未活跃的牌局
func (m *GameManager) Put(game *Game) *Game {
	m.games.Store(game.ID(), game)

	if m.maxGames > 0 && m.Count() > m.maxGames {
		m.evictOldest(game.ID())
	}
	return game
}

// Remove 移除牌局
func (m *GameManager) Remove(gameID string) {
	m.games.Delete(gameID)
	m.logger.Debug("Removed game", "gameId", gameID)
}

// Count 返回当前缓存的牌局数
func (m *GameManager) Count() int {
	count := 0
	m.games.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// evictLoop 淘汰循环
func (m *GameManager) evictLoop() {
	for {
		select {
		case <-m.evictTicker.C:
			m.evictInactive(time.Now())
		case <-m.stopChan:
			m.logger.Info("Evict loop stopped")
			return
		}
	}
}

// evictInactive 淘汰不活跃的牌局
func (m *GameManager) evictInactive(now time.Time) {
	toEvict := []*Game{}

	m.games.Range(func(key, value any) bool {
		game := value.(*Game)
		if now.Sub(game.LastActiveTime()) > m.evictTimeout {
			toEvict = append(toEvict, game)
		}
		return true
	})

	for _, game := range toEvict {
		m.Remove(game.ID())
		m.logger.Info("Evicted inactive game", "gameId", game.ID())
	}
}

// evictOldest 淘汰最久未活跃的牌局（keep 除外）
func (m *GameManager) evictOldest(keep string) {
	var oldest *Game

	m.games.Range(func(key, value any) bool {
		game := value.(*Game)
		if game.ID() == keep {
			return true
		}
		if oldest == nil || game.LastActiveTime().Before(oldest.LastActiveTime()) {
			oldest = game
		}
		return true
	})

	if oldest != nil {
		m.Remove(oldest.ID())
		m.logger.Info("Evicted game over capacity", "gameId", oldest.ID(), "maxGames", m.maxGames)
	}
}

// Shutdown 停止淘汰循环并清空缓存
func (m *GameManager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down GameManager")

	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.evictTicker.Stop()
	})

	m.games.Range(func(key, value any) bool {
		m.games.Delete(key)
		return true
	})

	m.logger.Info("GameManager shutdown complete")
	return ctx.Err()
}
