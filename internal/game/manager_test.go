package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.hukum/internal/game/hukum"
)

func newTestGame(id string, lastActive time.Time) *Game {
	g := NewGame(hukum.NewEngine(id, 1, hukum.DefaultConfig()))
	g.lastActive = lastActive
	return g
}

func TestGameManagerEvictInactive(t *testing.T) {
	m := NewGameManager(10, time.Minute, time.Hour)
	defer m.Shutdown(context.Background())

	now := time.Now()
	m.Put(newTestGame("old", now.Add(-2*time.Minute)))
	m.Put(newTestGame("fresh", now))
	require.Equal(t, 2, m.Count())

	m.evictInactive(now)

	_, ok := m.Get("old")
	assert.False(t, ok)
	_, ok = m.Get("fresh")
	assert.True(t, ok)
}

func TestGameManagerCapacity(t *testing.T) {
	m := NewGameManager(2, time.Hour, time.Hour)
	defer m.Shutdown(context.Background())

	now := time.Now()
	m.Put(newTestGame("a", now.Add(-3*time.Second)))
	m.Put(newTestGame("b", now.Add(-2*time.Second)))
	m.Put(newTestGame("c", now.Add(-5*time.Second)))

	assert.Equal(t, 2, m.Count())
	_, ok := m.Get("a")
	assert.False(t, ok, "oldest game besides the new one is evicted")
	_, ok = m.Get("c")
	assert.True(t, ok)
}

func TestGameManagerShutdown(t *testing.T) {
	m := NewGameManager(10, time.Hour, time.Hour)
	m.Put(newTestGame("g1", time.Now()))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, 0, m.Count())

	// 重复关闭不会 panic
	require.NoError(t, m.Shutdown(context.Background()))
}

// 淘汰后的牌局在下一次操作时从快照恢复
func TestEvictedGameReloads(t *testing.T) {
	h := newHarness(t, newFakeStore(), testServiceConfig())
	gameID := h.createGame(t)
	require.True(t, h.claim(t, gameID, 0, testUsers[0]).OK)

	h.manager.evictInactive(time.Now().Add(2 * time.Hour))
	_, ok := h.manager.Get(gameID)
	require.False(t, ok)

	resp := h.claim(t, gameID, 1, testUsers[1])
	require.True(t, resp.OK, resp.Code)
	assert.Equal(t, int64(2), resp.Version)

	g, ok := h.manager.Get(gameID)
	require.True(t, ok)
	assert.Equal(t, int64(2), g.Version())
}
