package client

import (
	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/protocol"
)

// Move 机器人决定的下一步
type Move struct {
	Action protocol.Action
	Suit   card.Suit
	Card   card.Card
}

// Decide 根据视图决定下一步，与服务端托管使用相同策略
// 不需要行动时返回 false
func Decide(v View) (Move, bool) {
	if v.Closed || v.State == nil || v.Seat < 0 || v.Pending != nil {
		return Move{}, false
	}

	switch v.State.Phase {
	case hukum.PhaseHukumSelection:
		if v.State.CurrentSeat != v.Seat {
			return Move{}, false
		}
		return Move{Action: protocol.ActionSelectHukum, Suit: hukum.PreferredHukum(v.Hand)}, true

	case hukum.PhasePlaying:
		if v.State.CurrentSeat != v.Seat {
			return Move{}, false
		}
		c, ok := hukum.LowestLegal(v.Hand, v.State.Table)
		if !ok {
			return Move{}, false
		}
		return Move{Action: protocol.ActionPlayCard, Card: c}, true

	case hukum.PhaseRoundEnd:
		// 只由本轮首家推进，避免四个客户端同时请求
		if v.State.Starter != v.Seat {
			return Move{}, false
		}
		return Move{Action: protocol.ActionContinueRound}, true

	case hukum.PhaseCompleted:
		return Move{Action: protocol.ActionLeave}, true
	}

	return Move{}, false
}
