package store

import "time"

const (
	// GameKeyPrefix 牌局 Redis Key 前缀
	GameKeyPrefix = "hukum:game:"

	// ArchiveTTL 归档后牌局数据的保留时长
	ArchiveTTL = 10 * time.Minute
)

// BuildGameLockKey 牌局锁
// Key: hukum:game:{gameId}:lock
func BuildGameLockKey(gameID string) string {
	return GameKeyPrefix + gameID + ":lock"
}

// BuildSnapshotKey 牌局快照 (JSON)
// Key: hukum:game:{gameId}:snapshot
func BuildSnapshotKey(gameID string) string {
	return GameKeyPrefix + gameID + ":snapshot"
}

// BuildSeatsKey 座位认领 (Hash: seat -> userId)
// Key: hukum:game:{gameId}:seats
func BuildSeatsKey(gameID string) string {
	return GameKeyPrefix + gameID + ":seats"
}

// BuildRosterKey 大厅名单 (Set of userId)
// Key: hukum:game:{gameId}:roster
func BuildRosterKey(gameID string) string {
	return GameKeyPrefix + gameID + ":roster"
}
