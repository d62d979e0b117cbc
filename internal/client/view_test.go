package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/protocol"
)

func stateSync(seq, version int64, phase hukum.Phase, current int) *protocol.Event {
	return &protocol.Event{
		Type:    protocol.EventStateSync,
		GameID:  "g1",
		Seq:     seq,
		Version: version,
		StateSync: &hukum.PublicView{
			GameID:      "g1",
			Version:     version,
			Phase:       phase,
			CurrentSeat: current,
			Starter:     0,
		},
	}
}

func seatChannel(seat int) string {
	return protocol.BuildSeatSubject("g1", seat, "k1")
}

func handUpdate(seq int64, seat int, cards ...card.Card) *protocol.Event {
	return &protocol.Event{
		Type:       protocol.EventHandUpdate,
		GameID:     "g1",
		Seq:        seq,
		HandUpdate: &protocol.HandUpdate{Seat: seat, Cards: cards},
		Channel:    seatChannel(seat),
	}
}

func tablePlay(seq int64, seat int, c card.Card) *protocol.Event {
	return &protocol.Event{
		Type:      protocol.EventTablePlay,
		GameID:    "g1",
		Seq:       seq,
		TablePlay: &protocol.TablePlay{Seat: seat, Card: c},
	}
}

var (
	aceSpades   = card.New(card.Spades, card.Ace)
	sevenHearts = card.New(card.Hearts, card.Seven)
)

func seatedView() View {
	v := NewView("g1")
	v.Seat = 1
	v.Hand = card.Hand{aceSpades, sevenHearts}
	return v
}

func TestReduceSequencing(t *testing.T) {
	v := seatedView()

	v, err := Reduce(v, stateSync(1, 5, hukum.PhasePlaying, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.PublicSeq)
	assert.Equal(t, int64(5), v.Version)

	t.Run("stale dropped", func(t *testing.T) {
		next, err := Reduce(v, stateSync(1, 9, hukum.PhaseRoundEnd, -1))
		require.ErrorIs(t, err, ErrStaleEvent)
		assert.Equal(t, v, next)
	})

	t.Run("gap requests resync", func(t *testing.T) {
		next, err := Reduce(v, stateSync(3, 9, hukum.PhaseRoundEnd, -1))
		require.ErrorIs(t, err, ErrSequenceGap)
		assert.True(t, next.Resync)
		assert.Equal(t, int64(1), next.PublicSeq)
		assert.Equal(t, hukum.PhasePlaying, next.State.Phase)
	})

	t.Run("private channel has its own sequence", func(t *testing.T) {
		next, err := Reduce(v, handUpdate(1, 1, sevenHearts))
		require.NoError(t, err)
		assert.Equal(t, card.Hand{sevenHearts}, next.Hand)
		assert.Equal(t, int64(1), next.PublicSeq)

		_, err = Reduce(next, handUpdate(1, 1))
		require.ErrorIs(t, err, ErrStaleEvent)

		_, err = Reduce(next, handUpdate(3, 1))
		require.ErrorIs(t, err, ErrSequenceGap)
	})

	t.Run("other seat hand ignored", func(t *testing.T) {
		next, err := Reduce(v, handUpdate(1, 2, aceSpades))
		require.NoError(t, err)
		assert.Equal(t, v.Hand, next.Hand)
	})
}

func TestReduceTablePlay(t *testing.T) {
	v := seatedView()
	v, err := Reduce(v, stateSync(1, 5, hukum.PhasePlaying, 0))
	require.NoError(t, err)

	next, err := Reduce(v, tablePlay(2, 0, aceSpades))
	require.NoError(t, err)
	require.Len(t, next.State.Table, 1)
	assert.Empty(t, v.State.Table, "reducer must not mutate the input view")
}

func TestOptimisticPlay(t *testing.T) {
	v := seatedView()
	v, err := Reduce(v, stateSync(1, 5, hukum.PhasePlaying, 1))
	require.NoError(t, err)
	require.True(t, v.MyTurn())

	v, err = Tentative(v, "r1", aceSpades)
	require.NoError(t, err)
	assert.False(t, v.MyTurn())
	assert.Equal(t, card.Hand{sevenHearts}, v.DisplayHand())
	assert.Equal(t, []hukum.Play{{Seat: 1, Card: aceSpades}}, v.DisplayTable())

	_, err = Tentative(v, "r2", sevenHearts)
	require.ErrorIs(t, err, ErrPlayPending)

	t.Run("rollback restores hand", func(t *testing.T) {
		rolled := Rollback(v, "r1")
		assert.Nil(t, rolled.Pending)
		assert.Len(t, rolled.DisplayHand(), 2)
	})

	t.Run("rollback of another request is ignored", func(t *testing.T) {
		assert.NotNil(t, Rollback(v, "other").Pending)
	})

	t.Run("confirm waits for hand update", func(t *testing.T) {
		confirmed := Confirm(v, "r1")
		require.NotNil(t, confirmed.Pending)
		assert.True(t, confirmed.Pending.Confirmed)
		assert.Equal(t, card.Hand{sevenHearts}, confirmed.DisplayHand())

		updated, err := Reduce(confirmed, handUpdate(1, 1, sevenHearts))
		require.NoError(t, err)
		assert.Nil(t, updated.Pending)
		assert.Equal(t, card.Hand{sevenHearts}, updated.DisplayHand())
	})

	t.Run("table play of own card clears pending", func(t *testing.T) {
		next, err := Reduce(v, tablePlay(2, 1, aceSpades))
		require.NoError(t, err)
		assert.Nil(t, next.Pending)
	})

	t.Run("card not in hand", func(t *testing.T) {
		_, err := Tentative(seatedView(), "r3", card.New(card.Clubs, card.Ten))
		require.ErrorIs(t, err, hukum.ErrCardNotInHand)
	})
}

func TestApplySnapshot(t *testing.T) {
	v := seatedView()
	v.Resync = true

	snap := &protocol.Snapshot{
		State: stateSync(7, 12, hukum.PhaseHukumSelection, 1),
		Hand:  handUpdate(3, 1, sevenHearts),
	}
	v = ApplySnapshot(v, snap, 1)
	assert.False(t, v.Resync)
	assert.Equal(t, int64(7), v.PublicSeq)
	assert.Equal(t, int64(3), v.HandSeq)
	assert.Equal(t, int64(12), v.Version)
	assert.Equal(t, card.Hand{sevenHearts}, v.Hand)

	// 后续事件从快照序号继续
	_, err := Reduce(v, stateSync(7, 12, hukum.PhasePlaying, 1))
	require.ErrorIs(t, err, ErrStaleEvent)
	v, err = Reduce(v, stateSync(8, 13, hukum.PhasePlaying, 1))
	require.NoError(t, err)

	// 较旧的快照不会回退视图
	older := ApplySnapshot(v, &protocol.Snapshot{State: stateSync(5, 10, hukum.PhaseSetup, -1)}, 1)
	assert.Equal(t, int64(8), older.PublicSeq)
	assert.Equal(t, hukum.PhasePlaying, older.State.Phase)
}

func TestClosedViewDiscardsEverything(t *testing.T) {
	v := Close(seatedView())

	next, err := Reduce(v, stateSync(1, 1, hukum.PhasePlaying, 1))
	require.ErrorIs(t, err, ErrSessionClosed)
	assert.Nil(t, next.State)

	_, err = Tentative(v, "r1", aceSpades)
	require.ErrorIs(t, err, ErrSessionClosed)

	assert.Nil(t, ApplySnapshot(v, &protocol.Snapshot{State: stateSync(1, 1, hukum.PhasePlaying, 1)}, 1).State)
}

func TestDecide(t *testing.T) {
	hand := card.Hand{aceSpades, sevenHearts, card.New(card.Spades, card.Seven)}

	tests := []struct {
		name   string
		phase  hukum.Phase
		seat   int
		table  []hukum.Play
		want   Move
		wantOK bool
	}{
		{"select hukum", hukum.PhaseHukumSelection, 1, nil, Move{Action: protocol.ActionSelectHukum, Suit: card.Spades}, true},
		{"lowest legal card", hukum.PhasePlaying, 1, nil, Move{Action: protocol.ActionPlayCard, Card: sevenHearts}, true},
		{"follow suit", hukum.PhasePlaying, 1, []hukum.Play{{Seat: 0, Card: card.New(card.Spades, card.Ten)}}, Move{Action: protocol.ActionPlayCard, Card: card.New(card.Spades, card.Seven)}, true},
		{"not my turn", hukum.PhasePlaying, 2, nil, Move{}, false},
		{"round end by starter", hukum.PhaseRoundEnd, 0, nil, Move{Action: protocol.ActionContinueRound}, true},
		{"round end other seat", hukum.PhaseRoundEnd, 1, nil, Move{}, false},
		{"completed", hukum.PhaseCompleted, 1, nil, Move{Action: protocol.ActionLeave}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewView("g1")
			v.Seat = tt.seat
			v.Hand = hand
			v.State = &hukum.PublicView{Phase: tt.phase, CurrentSeat: 1, Starter: 0, Table: tt.table}

			move, ok := Decide(v)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, move)
		})
	}
}
