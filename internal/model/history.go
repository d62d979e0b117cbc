package model

import "time"

// GameRecord 牌局历史记录
type GameRecord struct {
	ID              string    `json:"id"`
	GameID          string    `json:"gameId"`
	WinnerTeam      string    `json:"winnerTeam"` // "A" / "B"
	TeamAScore      int       `json:"teamAScore"`
	TeamBScore      int       `json:"teamBScore"`
	HukumSuit       string    `json:"hukumSuit"` // 最后一轮的将牌
	Rounds          int       `json:"rounds"`
	DurationSeconds int       `json:"durationSeconds"`
	Players         []int64   `json:"players"` // 按座位 0..3
	CompletedAt     time.Time `json:"completedAt"`
}

// Winners 获胜方的玩家ID
func (r *GameRecord) Winners() []int64 {
	offset := 0
	if r.WinnerTeam == "B" {
		offset = 1
	}

	var winners []int64
	for seat := offset; seat < len(r.Players); seat += 2 {
		winners = append(winners, r.Players[seat])
	}
	return winners
}

// UserStats 玩家统计
type UserStats struct {
	UserID      int64     `json:"userId"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
