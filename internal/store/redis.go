package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
)

var (
	ErrLockBusy         = errors.New("GAME_BUSY")
	ErrSnapshotNotFound = errors.New("SNAPSHOT_NOT_FOUND")
)

// releaseScript 只删除自己持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Snapshot 牌局持久化形式：引擎状态 + 各频道已分配的序号
type Snapshot struct {
	State     *hukum.State      `json:"state"`
	PublicSeq int64             `json:"publicSeq"`
	SeatSeq   [card.Seats]int64 `json:"seatSeq"`
	SavedAt   time.Time         `json:"savedAt"`
}

// Options Redis 存储配置
type Options struct {
	LockTTL     time.Duration // 锁自动过期时间
	LockWait    time.Duration // 获取锁最长等待
	LockRetry   time.Duration // 重试间隔
	SnapshotTTL time.Duration
}

// RedisStore 牌局权威状态存储
type RedisStore struct {
	rdb    *redis.Client
	opts   Options
	logger *slog.Logger
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(rdb *redis.Client, opts Options) *RedisStore {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	if opts.LockRetry <= 0 {
		opts.LockRetry = 25 * time.Millisecond
	}
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = 24 * time.Hour
	}
	return &RedisStore{
		rdb:    rdb,
		opts:   opts,
		logger: slog.Default().With("component", "RedisStore"),
	}
}

// Unlocker 已持有的锁
type Unlocker interface {
	Unlock(ctx context.Context) error
}

// Lock 牌局分布式锁
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

// Unlock 释放锁；锁已过期或被他人持有时不做任何事
func (l *Lock) Unlock(ctx context.Context) error {
	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}

// Lock 获取牌局锁，在 LockWait 内重试，超时返回 ErrLockBusy
func (s *RedisStore) Lock(ctx context.Context, gameID string) (Unlocker, error) {
	key := BuildGameLockKey(gameID)
	token := uuid.NewString()
	deadline := time.Now().Add(s.opts.LockWait)

	for {
		locked, err := s.rdb.SetNX(ctx, key, token, s.opts.LockTTL).Result()
		if err != nil {
			s.logger.Error("Failed to acquire game lock", "error", err, "gameId", gameID)
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if locked {
			return &Lock{rdb: s.rdb, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			s.logger.Warn("Game is locked by another operation", "gameId", gameID)
			return nil, ErrLockBusy
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.opts.LockRetry):
		}
	}
}

// LoadSnapshot 读取快照
func (s *RedisStore) LoadSnapshot(ctx context.Context, gameID string) (*Snapshot, error) {
	data, err := s.rdb.Get(ctx, BuildSnapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// SaveSnapshot 保存快照
func (s *RedisStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	snap.SavedAt = time.Now()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := s.rdb.Set(ctx, BuildSnapshotKey(snap.State.GameID), data, s.opts.SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// ClaimSeat 原子认领座位 (HSETNX)
// 座位已属于同一玩家时同样返回 true（重连）
func (s *RedisStore) ClaimSeat(ctx context.Context, gameID string, seat int, userID int64) (bool, error) {
	key := BuildSeatsKey(gameID)
	field := strconv.Itoa(seat)

	ok, err := s.rdb.HSetNX(ctx, key, field, userID).Result()
	if err != nil {
		return false, fmt.Errorf("claim seat: %w", err)
	}
	s.rdb.Expire(ctx, key, s.opts.SnapshotTTL)
	if ok {
		return true, nil
	}

	owner, err := s.rdb.HGet(ctx, key, field).Int64()
	if err != nil {
		return false, fmt.Errorf("read seat owner: %w", err)
	}
	return owner == userID, nil
}

// ReleaseSeat 释放座位（仅入座阶段离开时使用，调用方持有牌局锁）
func (s *RedisStore) ReleaseSeat(ctx context.Context, gameID string, seat int, userID int64) error {
	key := BuildSeatsKey(gameID)
	field := strconv.Itoa(seat)

	owner, err := s.rdb.HGet(ctx, key, field).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seat owner: %w", err)
	}
	if owner != userID {
		return nil
	}
	return s.rdb.HDel(ctx, key, field).Err()
}

// SetRoster 写入大厅名单
func (s *RedisStore) SetRoster(ctx context.Context, gameID string, userIDs ...int64) error {
	key := BuildRosterKey(gameID)
	members := make([]any, len(userIDs))
	for i, id := range userIDs {
		members[i] = id
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, s.opts.SnapshotTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set roster: %w", err)
	}
	return nil
}

// InRoster 玩家是否可加入；没有名单的牌局对所有人开放
func (s *RedisStore) InRoster(ctx context.Context, gameID string, userID int64) (bool, error) {
	key := BuildRosterKey(gameID)

	size, err := s.rdb.SCard(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("roster size: %w", err)
	}
	if size == 0 {
		return true, nil
	}

	member, err := s.rdb.SIsMember(ctx, key, userID).Result()
	if err != nil {
		return false, fmt.Errorf("roster member: %w", err)
	}
	return member, nil
}

// Archive 牌局结束或全员离线后缩短数据保留时间
func (s *RedisStore) Archive(ctx context.Context, gameID string) error {
	pipe := s.rdb.Pipeline()
	pipe.Expire(ctx, BuildSnapshotKey(gameID), ArchiveTTL)
	pipe.Expire(ctx, BuildSeatsKey(gameID), ArchiveTTL)
	pipe.Expire(ctx, BuildRosterKey(gameID), ArchiveTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive game: %w", err)
	}
	s.logger.Info("Game archived", "gameId", gameID, "ttl", ArchiveTTL)
	return nil
}

// Ping 健康检查
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
