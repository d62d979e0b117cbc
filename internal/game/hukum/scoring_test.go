package hukum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundPoints(t *testing.T) {
	scoring := DefaultScoring()

	tests := []struct {
		name    string
		tricks  [2]int
		starter Team
		want    [2]int
	}{
		{name: "even split", tricks: [2]int{4, 4}, starter: TeamA, want: [2]int{0, 0}},
		{name: "majority", tricks: [2]int{5, 3}, starter: TeamA, want: [2]int{1, 0}},
		{name: "majority for defenders", tricks: [2]int{1, 7}, starter: TeamA, want: [2]int{0, 1}},
		{name: "caller sweep", tricks: [2]int{8, 0}, starter: TeamA, want: [2]int{2, 0}},
		{name: "sweep against caller", tricks: [2]int{8, 0}, starter: TeamB, want: [2]int{3, 0}},
		{name: "team B sweeps its own call", tricks: [2]int{0, 8}, starter: TeamB, want: [2]int{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoring.RoundPoints(tt.tricks, tt.starter))
		})
	}
}

func TestGameWinner(t *testing.T) {
	scoring := DefaultScoring()

	assert.Nil(t, scoring.GameWinner([2]int{4, 4}))

	winner := scoring.GameWinner([2]int{2, 5})
	if assert.NotNil(t, winner) {
		assert.Equal(t, TeamB, *winner)
	}

	winner = scoring.GameWinner([2]int{7, 5})
	if assert.NotNil(t, winner) {
		assert.Equal(t, TeamA, *winner)
	}
}

func TestRoundWinner(t *testing.T) {
	assert.Nil(t, RoundWinner([2]int{4, 4}))
	if w := RoundWinner([2]int{3, 5}); assert.NotNil(t, w) {
		assert.Equal(t, TeamB, *w)
	}
}

func TestTeamOf(t *testing.T) {
	assert.Equal(t, TeamA, TeamOf(0))
	assert.Equal(t, TeamB, TeamOf(1))
	assert.Equal(t, TeamA, TeamOf(2))
	assert.Equal(t, TeamB, TeamOf(3))
	assert.Equal(t, TeamB, TeamA.Other())
}

func TestScoringValidate(t *testing.T) {
	assert.NoError(t, DefaultScoring().Validate())
	assert.Error(t, Scoring{TargetScore: 0}.Validate())
	assert.Error(t, Scoring{WinPoints: -1, TargetScore: 5}.Validate())
}
