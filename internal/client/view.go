package client

import (
	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/protocol"
)

// PendingPlay 尚未被服务端确认的出牌
type PendingPlay struct {
	RequestID string
	Card      card.Card
	Confirmed bool // 应答已接受，等待手牌更新
}

// View 客户端视图
// 只由 Reduce / ApplySnapshot 等纯函数推进，不直接修改
type View struct {
	GameID    string
	Seat      int               // 未入座为 -1
	PublicSeq int64             // 公共频道已应用的最大序号
	HandSeq   int64             // 私有频道已应用的最大序号
	Version   int64             // 最近一次 StateSync 的版本
	State     *hukum.PublicView // 最近一次公共快照
	Hand      card.Hand         // 服务端确认的手牌
	Pending   *PendingPlay      // 乐观出牌，仅影响展示
	Resync    bool              // 发现缺口，等待快照
	Closed    bool
}

// NewView 创建空视图
func NewView(gameID string) View {
	return View{GameID: gameID, Seat: -1}
}

// Reduce 应用一个频道事件，返回新视图
// 旧序号返回 ErrStaleEvent，缺口返回 ErrSequenceGap；两种情况下视图内容不变
func Reduce(v View, ev *protocol.Event) (View, error) {
	if v.Closed {
		return v, ErrSessionClosed
	}

	if ev.Type == protocol.EventHandUpdate {
		return reduceHand(v, ev)
	}

	switch {
	case ev.Seq <= v.PublicSeq:
		return v, ErrStaleEvent.WithContext("seq", ev.Seq)
	case ev.Seq > v.PublicSeq+1:
		v.Resync = true
		return v, ErrSequenceGap.WithContext("expected", v.PublicSeq+1)
	}
	v.PublicSeq = ev.Seq

	switch ev.Type {
	case protocol.EventStateSync:
		if ev.StateSync == nil {
			return v, nil
		}
		state := *ev.StateSync
		v.State = &state
		v.Version = ev.Version
	case protocol.EventTablePlay:
		if ev.TablePlay == nil {
			return v, nil
		}
		// 桌面先行展示，随后的 StateSync 会覆盖
		if v.State != nil && len(v.State.Table) < card.Seats {
			state := *v.State
			state.Table = append(append([]hukum.Play{}, state.Table...), hukum.Play{Seat: ev.TablePlay.Seat, Card: ev.TablePlay.Card})
			v.State = &state
		}
		if v.Pending != nil && ev.TablePlay.Seat == v.Seat && ev.TablePlay.Card == v.Pending.Card {
			v.Pending = nil
		}
	}

	return v, nil
}

func reduceHand(v View, ev *protocol.Event) (View, error) {
	if ev.HandUpdate == nil || ev.HandUpdate.Seat != v.Seat {
		return v, nil
	}

	switch {
	case ev.Seq <= v.HandSeq:
		return v, ErrStaleEvent.WithContext("seq", ev.Seq)
	case ev.Seq > v.HandSeq+1:
		v.Resync = true
		return v, ErrSequenceGap.WithContext("expected", v.HandSeq+1)
	}

	v.HandSeq = ev.Seq
	v.Hand = ev.HandUpdate.Cards.Clone()
	if v.Pending != nil && !v.Hand.Contains(v.Pending.Card) {
		v.Pending = nil
	}
	return v, nil
}

// ApplySnapshot 用快照重置视图；比当前视图更旧的部分被忽略
func ApplySnapshot(v View, snap *protocol.Snapshot, seat int) View {
	if v.Closed || snap == nil {
		return v
	}

	v.Seat = seat
	if snap.State != nil && snap.State.Seq >= v.PublicSeq && snap.State.StateSync != nil {
		state := *snap.State.StateSync
		v.State = &state
		v.PublicSeq = snap.State.Seq
		v.Version = snap.State.Version
	}
	if snap.Hand != nil && snap.Hand.HandUpdate != nil && snap.Hand.Seq >= v.HandSeq {
		v.Hand = snap.Hand.HandUpdate.Cards.Clone()
		v.HandSeq = snap.Hand.Seq
		if v.Pending != nil && !v.Hand.Contains(v.Pending.Card) {
			v.Pending = nil
		}
	}
	v.Resync = false
	return v
}

// Tentative 乐观出牌：记录待确认的牌，一次只允许一张
func Tentative(v View, requestID string, c card.Card) (View, error) {
	if v.Closed {
		return v, ErrSessionClosed
	}
	if v.Pending != nil {
		return v, ErrPlayPending
	}
	if !v.Hand.Contains(c) {
		return v, hukum.ErrCardNotInHand.WithContext("card", c.String())
	}
	v.Pending = &PendingPlay{RequestID: requestID, Card: c}
	return v, nil
}

// Confirm 服务端接受了出牌；待确认状态保留到手牌更新到达
func Confirm(v View, requestID string) View {
	if v.Pending != nil && v.Pending.RequestID == requestID {
		pending := *v.Pending
		pending.Confirmed = true
		v.Pending = &pending
	}
	return v
}

// Rollback 服务端拒绝了出牌，恢复展示
func Rollback(v View, requestID string) View {
	if v.Pending != nil && v.Pending.RequestID == requestID {
		v.Pending = nil
	}
	return v
}

// Close 离开牌局
func Close(v View) View {
	v.Closed = true
	v.Pending = nil
	return v
}

// DisplayHand 展示用手牌（去掉待确认的牌）
func (v View) DisplayHand() card.Hand {
	hand := v.Hand.Clone()
	if v.Pending != nil {
		hand, _ = hand.Remove(v.Pending.Card)
	}
	hand.Sort()
	return hand
}

// DisplayTable 展示用桌面（追加待确认的牌）
func (v View) DisplayTable() []hukum.Play {
	var table []hukum.Play
	if v.State != nil {
		table = append(table, v.State.Table...)
	}
	if v.Pending != nil {
		table = append(table, hukum.Play{Seat: v.Seat, Card: v.Pending.Card})
	}
	return table
}

// MyTurn 是否轮到自己行动
func (v View) MyTurn() bool {
	if v.State == nil || v.Seat < 0 || v.Pending != nil {
		return false
	}
	switch v.State.Phase {
	case hukum.PhaseHukumSelection, hukum.PhasePlaying:
		return v.State.CurrentSeat == v.Seat
	default:
		return false
	}
}
