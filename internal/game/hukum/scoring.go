package hukum

import (
	"fmt"

	"sudooom.hukum/internal/game/card"
)

// TricksPerRound 每轮墩数
const TricksPerRound = card.HandSize

// Scoring 计分规则
type Scoring struct {
	WinPoints         int // 5~7 墩
	SweepPoints       int // 8 墩全胜
	CallerSweepPoints int // 非首家一方 8 墩全胜（打穿选将方）
	TargetScore       int // 达到该分数结束游戏
}

// DefaultScoring 默认计分规则
func DefaultScoring() Scoring {
	return Scoring{
		WinPoints:         1,
		SweepPoints:       2,
		CallerSweepPoints: 3,
		TargetScore:       5,
	}
}

// Validate 校验计分配置
func (s Scoring) Validate() error {
	if s.WinPoints < 0 || s.SweepPoints < 0 || s.CallerSweepPoints < 0 {
		return fmt.Errorf("scoring points must not be negative")
	}
	if s.TargetScore <= 0 {
		return fmt.Errorf("target score must be positive, got %d", s.TargetScore)
	}
	return nil
}

// RoundPoints 根据双方墩数计算本轮得分
// starterTeam 为本轮首家（选将方）所在队伍
func (s Scoring) RoundPoints(tricks [2]int, starterTeam Team) [2]int {
	var points [2]int

	for _, team := range []Team{TeamA, TeamB} {
		won := tricks[team]
		switch {
		case won == TricksPerRound && team != starterTeam:
			points[team] = s.CallerSweepPoints
		case won == TricksPerRound:
			points[team] = s.SweepPoints
		case won > TricksPerRound/2:
			points[team] = s.WinPoints
		}
	}

	return points
}

// RoundWinner 墩数多的一方，平局返回 nil
func RoundWinner(tricks [2]int) *Team {
	var team Team
	switch {
	case tricks[TeamA] > tricks[TeamB]:
		team = TeamA
	case tricks[TeamB] > tricks[TeamA]:
		team = TeamB
	default:
		return nil
	}
	return &team
}

// GameWinner 累计分数达到目标的一方；未结束返回 nil
func (s Scoring) GameWinner(scores [2]int) *Team {
	reachedA := scores[TeamA] >= s.TargetScore
	reachedB := scores[TeamB] >= s.TargetScore

	var team Team
	switch {
	case reachedA && reachedB:
		// 同时到达时取分数高者，同分归 A
		if scores[TeamB] > scores[TeamA] {
			team = TeamB
		} else {
			team = TeamA
		}
	case reachedA:
		team = TeamA
	case reachedB:
		team = TeamB
	default:
		return nil
	}
	return &team
}
