package client

import "sudooom.hukum/internal/game/hukum"

var (
	// ErrStaleEvent 序号不大于已应用序号，静默丢弃
	ErrStaleEvent = hukum.ErrStaleEvent

	// ErrSequenceGap 序号出现缺口，需要重新拉取快照
	ErrSequenceGap = hukum.NewGameError("SEQUENCE_GAP", "事件序号不连续，需要重新同步")

	// ErrSessionClosed 已离开牌局，之后的事件与应答全部丢弃
	ErrSessionClosed = hukum.NewGameError("SESSION_CLOSED", "会话已关闭")

	// ErrNoSeatChannel 入座应答没有携带座位频道
	ErrNoSeatChannel = hukum.NewGameError("NO_SEAT_CHANNEL", "入座应答缺少座位频道")

	// ErrPlayPending 上一次出牌尚未确认
	ErrPlayPending = hukum.NewGameError("PLAY_PENDING", "上一次出牌尚未确认")
)
