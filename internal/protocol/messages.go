package protocol

import (
	"github.com/google/uuid"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
)

// ============== 请求 (Client -> Service) ==============

// Action 请求类型
type Action string

const (
	ActionClaimSeat     Action = "claim_seat"     // 入座 / 重连
	ActionSelectHukum   Action = "select_hukum"   // 选将
	ActionPlayCard      Action = "play_card"      // 出牌
	ActionContinueRound Action = "continue_round" // 开始下一轮
	ActionLeave         Action = "leave"          // 离开
	ActionSnapshot      Action = "snapshot"       // 重新拉取快照
)

// Request 客户端请求
type Request struct {
	RequestID string     `json:"requestId"`
	Action    Action     `json:"action"`
	GameID    string     `json:"gameId"`
	Token     string     `json:"token"`          // Access Token，服务端解析出 UserId
	Seat      int        `json:"seat,omitempty"` // 仅 claim_seat 使用
	Suit      *card.Suit `json:"suit,omitempty"`
	Card      *card.Card `json:"card,omitempty"`
}

// NewRequest 创建带请求ID的请求
func NewRequest(action Action, gameID, token string) *Request {
	return &Request{
		RequestID: uuid.NewString(),
		Action:    action,
		GameID:    gameID,
		Token:     token,
	}
}

// Response 同步应答；拒绝原因只出现在应答中，不会广播
type Response struct {
	RequestID string         `json:"requestId"`
	OK        bool           `json:"ok"`
	Code      string         `json:"code,omitempty"`
	Message   string         `json:"message,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Version   int64          `json:"version"`
	Seat      int            `json:"seat"`
	Channel   string         `json:"channel,omitempty"` // 请求者座位的私有频道
	Snapshot  *Snapshot      `json:"snapshot,omitempty"`
}

// Snapshot 快照：公共状态 + 请求者自己的手牌
type Snapshot struct {
	State *Event `json:"state"`
	Hand  *Event `json:"hand,omitempty"`
}

// ============== 事件 (Service -> Client) ==============

// EventType 事件类型
type EventType string

const (
	EventStateSync  EventType = "state_sync"
	EventTablePlay  EventType = "table_play"
	EventHandUpdate EventType = "hand_update"
)

// Event 频道事件
// Seq 在每个频道内严格递增，Version 为事件对应的牌局版本
type Event struct {
	Type       EventType         `json:"type"`
	GameID     string            `json:"gameId"`
	Seq        int64             `json:"seq"`
	Version    int64             `json:"version"`
	StateSync  *hukum.PublicView `json:"stateSync,omitempty"`
	TablePlay  *TablePlay        `json:"tablePlay,omitempty"`
	HandUpdate *HandUpdate       `json:"handUpdate,omitempty"`

	Channel string `json:"-"` // 私有事件的发布频道，服务端分配序号时填入
}

// TablePlay 一次被接受的出牌
type TablePlay struct {
	Seat int       `json:"seat"`
	Card card.Card `json:"card"`
}

// HandUpdate 座位剩余手牌
type HandUpdate struct {
	Seat  int       `json:"seat"`
	Cards card.Hand `json:"cards"`
}

// FromEngine 将引擎事件转换为频道事件（Seq 由发布方分配）
func FromEngine(gameID string, version int64, ev hukum.Event) *Event {
	out := &Event{
		GameID:  gameID,
		Version: version,
	}

	switch ev.Kind {
	case hukum.EventStateSync:
		view := ev.View
		out.Type = EventStateSync
		out.StateSync = &view
	case hukum.EventTablePlay:
		out.Type = EventTablePlay
		out.TablePlay = &TablePlay{Seat: ev.Seat, Card: ev.Card}
	case hukum.EventHandUpdate:
		out.Type = EventHandUpdate
		out.HandUpdate = &HandUpdate{Seat: ev.Seat, Cards: ev.Hand.Clone()}
	}

	return out
}

// Subject 事件应发布到的频道；手牌更新未分配频道时为空
func (e *Event) Subject() string {
	if e.Type == EventHandUpdate {
		return e.Channel
	}
	return BuildEventsSubject(e.GameID)
}

// ErrorResponse 根据错误构造拒绝应答
func ErrorResponse(requestID string, err error) *Response {
	resp := &Response{RequestID: requestID, Seat: -1}
	if gameErr := hukum.AsGameError(err); gameErr != nil {
		resp.Code = gameErr.Code
		resp.Message = gameErr.Message
		resp.Context = gameErr.Context
		return resp
	}
	resp.Code = "INTERNAL"
	resp.Message = "internal error"
	return resp
}

// Err 将拒绝应答还原为错误，便于客户端用 errors.Is 判断
func (r *Response) Err() error {
	if r.OK {
		return nil
	}
	gameErr := hukum.NewGameError(r.Code, r.Message)
	for k, v := range r.Context {
		gameErr = gameErr.WithContext(k, v)
	}
	return gameErr
}
