package hukum

import (
	"sudooom.hukum/internal/game/card"
)

// EventKind 事件类型
type EventKind string

const (
	EventStateSync  EventKind = "state_sync"  // 公共快照，广播
	EventTablePlay  EventKind = "table_play"  // 一次被接受的出牌，广播
	EventHandUpdate EventKind = "hand_update" // 某座位的剩余手牌，仅发给该座位
)

// Event 引擎产生的事件，按产生顺序发布
type Event struct {
	Kind EventKind
	Seat int        // TablePlay / HandUpdate
	Card card.Card  // TablePlay
	Hand card.Hand  // HandUpdate
	View PublicView // StateSync
}

// Private 是否只能发往座位私有频道
func (e Event) Private() bool {
	return e.Kind == EventHandUpdate
}

// SeatView 座位的公开信息
type SeatView struct {
	Seat      int   `json:"seat"`
	Team      Team  `json:"team"`
	Occupied  bool  `json:"occupied"`
	UserID    int64 `json:"userId,omitempty"`
	Connected bool  `json:"connected"`
	HandSize  int   `json:"handSize"`
}

// PublicView 公共快照，不含任何手牌内容
type PublicView struct {
	GameID          string               `json:"gameId"`
	Version         int64                `json:"version"`
	Phase           Phase                `json:"phase"`
	Round           int                  `json:"round"`
	Hukum           *card.Suit           `json:"hukum,omitempty"`
	LeadingSuit     *card.Suit           `json:"leadingSuit,omitempty"`
	CurrentSeat     int                  `json:"currentSeat"`
	Dealer          int                  `json:"dealer"`
	Starter         int                  `json:"starter"`
	Scores          [2]int               `json:"scores"`
	TargetScore     int                  `json:"targetScore"`
	Tricks          [2]int               `json:"tricks"`
	TricksPlayed    int                  `json:"tricksPlayed"`
	Table           []Play               `json:"table"`
	LastTrick       []Play               `json:"lastTrick"`
	LastTrickWinner int                  `json:"lastTrickWinner"`
	Seats           [card.Seats]SeatView `json:"seats"`
	LastRound       *RoundResult         `json:"lastRound,omitempty"`
	Winner          *Team                `json:"winner,omitempty"`
}

// PublicView 生成公共快照
func (e *Engine) PublicView() PublicView {
	s := e.state

	view := PublicView{
		GameID:          s.GameID,
		Version:         s.Version,
		Phase:           s.Phase,
		Round:           s.Round,
		CurrentSeat:     s.CurrentSeat,
		Dealer:          s.Dealer,
		Starter:         s.Starter,
		Scores:          s.Scores,
		TargetScore:     e.cfg.Scoring.TargetScore,
		Tricks:          s.Tricks,
		TricksPlayed:    s.TricksPlayed,
		Table:           append([]Play{}, s.Table...),
		LastTrick:       append([]Play{}, s.LastTrick...),
		LastTrickWinner: s.LastTrickWinner,
	}

	if s.Hukum != nil {
		suit := *s.Hukum
		view.Hukum = &suit
	}
	if lead, ok := LeadingSuit(s.Table); ok {
		view.LeadingSuit = &lead
	}
	if s.Winner != nil {
		team := *s.Winner
		view.Winner = &team
	}
	if n := len(s.Rounds); n > 0 {
		last := s.Rounds[n-1]
		view.LastRound = &last
	}

	for seat := range view.Seats {
		sv := SeatView{
			Seat:     seat,
			Team:     TeamOf(seat),
			HandSize: len(s.Hands[seat]),
		}
		if b := s.Seats[seat]; b != nil {
			sv.Occupied = true
			sv.UserID = b.UserID
			sv.Connected = b.Connected
		}
		view.Seats[seat] = sv
	}

	return view
}
