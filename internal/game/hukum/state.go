package hukum

import (
	"fmt"
	"time"

	"sudooom.hukum/internal/game/card"
)

// Phase 游戏阶段
type Phase string

const (
	PhaseSetup          Phase = "setup"           // 等待四人入座
	PhaseHukumSelection Phase = "hukum_selection" // 首家选将
	PhasePlaying        Phase = "playing"         // 出牌中
	PhaseRoundEnd       Phase = "round_end"       // 本轮结束，等待继续
	PhaseCompleted      Phase = "completed"       // 游戏结束
)

// Team 队伍，由座位奇偶决定
type Team int8

const (
	TeamA Team = iota // 座位 0、2
	TeamB             // 座位 1、3
)

// TeamOf 座位所属队伍
func TeamOf(seat int) Team {
	return Team(seat % 2)
}

// Other 对方队伍
func (t Team) Other() Team {
	return 1 - t
}

// String 返回队伍名称
func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"
	case TeamB:
		return "B"
	default:
		return "Unknown"
	}
}

// MarshalText JSON 中为 "A"/"B"
func (t Team) MarshalText() ([]byte, error) {
	if t != TeamA && t != TeamB {
		return nil, fmt.Errorf("invalid team: %d", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText 从 "A"/"B" 解析
func (t *Team) UnmarshalText(text []byte) error {
	switch string(text) {
	case "A":
		*t = TeamA
	case "B":
		*t = TeamB
	default:
		return fmt.Errorf("unknown team %q", text)
	}
	return nil
}

// ValidSeat 座位是否在 0..3
func ValidSeat(seat int) bool {
	return seat >= 0 && seat < card.Seats
}

// Binding 座位与玩家的绑定
type Binding struct {
	UserID    int64 `json:"userId"`    // 玩家ID
	Connected bool  `json:"connected"` // 是否在线
}

// RoundResult 一轮的结果
type RoundResult struct {
	Round   int       `json:"round"`            // 轮次
	Hukum   card.Suit `json:"hukum"`            // 本轮将牌
	Starter int       `json:"starter"`          // 首家座位
	Tricks  [2]int    `json:"tricks"`           // 双方墩数
	Points  [2]int    `json:"points"`           // 双方得分
	Winner  *Team     `json:"winner,omitempty"` // 墩数多的一方，4:4 为空
}

// State 牌局完整状态（含所有手牌，仅在服务端保存）
// 所有字段可 JSON 序列化，用于 Redis 快照
type State struct {
	GameID  string `json:"gameId"`
	Seed    int64  `json:"seed"`    // 随机种子，每轮洗牌使用 Seed+Round
	Version int64  `json:"version"` // 每次成功操作加一

	Phase Phase                `json:"phase"`
	Seats [card.Seats]*Binding `json:"seats"`

	Round       int        `json:"round"`
	Dealer      int        `json:"dealer"`
	Starter     int        `json:"starter"`
	CurrentSeat int        `json:"currentSeat"`
	Hukum       *card.Suit `json:"hukum,omitempty"`

	Hands        [card.Seats]card.Hand `json:"hands"`
	Table        []Play                `json:"table"`
	Played       card.Hand             `json:"played"` // 本轮已打出的牌
	Tricks       [2]int                `json:"tricks"`
	TricksPlayed int                   `json:"tricksPlayed"`

	LastTrick       []Play `json:"lastTrick"`
	LastTrickWinner int    `json:"lastTrickWinner"` // 没有时为 -1

	Scores [2]int        `json:"scores"`
	Rounds []RoundResult `json:"rounds"`
	Winner *Team         `json:"winner,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// NewState 创建等待入座的新牌局
func NewState(gameID string, seed int64, now time.Time) *State {
	return &State{
		GameID:          gameID,
		Seed:            seed,
		Phase:           PhaseSetup,
		CurrentSeat:     -1,
		Dealer:          -1,
		Starter:         -1,
		LastTrickWinner: -1,
		CreatedAt:       now,
	}
}

// Clone 深拷贝
func (s *State) Clone() *State {
	cp := *s

	for i, b := range s.Seats {
		if b != nil {
			bc := *b
			cp.Seats[i] = &bc
		}
	}
	for i, h := range s.Hands {
		if h != nil {
			cp.Hands[i] = h.Clone()
		}
	}
	if s.Hukum != nil {
		suit := *s.Hukum
		cp.Hukum = &suit
	}
	if s.Winner != nil {
		team := *s.Winner
		cp.Winner = &team
	}

	cp.Table = append([]Play(nil), s.Table...)
	cp.LastTrick = append([]Play(nil), s.LastTrick...)
	cp.Played = append(card.Hand(nil), s.Played...)
	cp.Rounds = make([]RoundResult, len(s.Rounds))
	for i, r := range s.Rounds {
		cp.Rounds[i] = r
		if r.Winner != nil {
			team := *r.Winner
			cp.Rounds[i].Winner = &team
		}
	}
	return &cp
}

// SeatOf 查找玩家所在座位
func (s *State) SeatOf(userID int64) (int, bool) {
	for i, b := range s.Seats {
		if b != nil && b.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

// SeatedCount 已入座人数
func (s *State) SeatedCount() int {
	count := 0
	for _, b := range s.Seats {
		if b != nil {
			count++
		}
	}
	return count
}

// ConnectedCount 在线人数
func (s *State) ConnectedCount() int {
	count := 0
	for _, b := range s.Seats {
		if b != nil && b.Connected {
			count++
		}
	}
	return count
}

// PendingSeat 当前需要行动的座位；没有人需要行动时返回 -1
func (s *State) PendingSeat() int {
	switch s.Phase {
	case PhaseHukumSelection:
		return s.Starter
	case PhasePlaying:
		return s.CurrentSeat
	default:
		return -1
	}
}

// Players 四个座位上的玩家ID，空座位为 0
func (s *State) Players() [card.Seats]int64 {
	var ids [card.Seats]int64
	for i, b := range s.Seats {
		if b != nil {
			ids[i] = b.UserID
		}
	}
	return ids
}
