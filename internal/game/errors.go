package game

import "sudooom.hukum/internal/game/hukum"

// 会话相关错误定义
// 与引擎错误共用 GameError，应答中按 Code 区分

var (
	// ErrGameNotFound 牌局不存在或已过期
	ErrGameNotFound = hukum.NewGameError("GAME_NOT_FOUND", "牌局不存在")

	// ErrGameBusy 牌局锁被其他操作持有
	ErrGameBusy = hukum.NewGameError("GAME_BUSY", "牌局正忙，请稍后重试")

	// ErrNotInRoster 玩家不在大厅名单中
	ErrNotInRoster = hukum.NewGameError("NOT_IN_ROSTER", "玩家不在本局名单中")

	// ErrUnauthorized 身份校验失败
	ErrUnauthorized = hukum.NewGameError("UNAUTHORIZED", "身份校验失败")

	// ErrBadRequest 请求缺少必要字段或类型未知
	ErrBadRequest = hukum.NewGameError("BAD_REQUEST", "无效的请求")
)
