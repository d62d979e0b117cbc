package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeatKey(t *testing.T) {
	secret := []byte("channel-secret")

	key := SeatKey(secret, "g1", 2, 103)
	assert.Len(t, key, 32)
	assert.Equal(t, key, SeatKey(secret, "g1", 2, 103), "重连得到相同的频道")

	assert.NotEqual(t, key, SeatKey(secret, "g1", 2, 104))
	assert.NotEqual(t, key, SeatKey(secret, "g1", 1, 103))
	assert.NotEqual(t, key, SeatKey(secret, "g2", 2, 103))
	assert.NotEqual(t, key, SeatKey([]byte("other"), "g1", 2, 103))
}

func TestBuildSeatSubject(t *testing.T) {
	subject := BuildSeatSubject("g1", 2, "abc")
	assert.Equal(t, "hukum.game.g1.seat.2.abc", subject)
	assert.True(t, strings.HasPrefix(subject, SubjectGamePrefix))
	assert.Equal(t, "hukum.game.g1.events", BuildEventsSubject("g1"))
}

func TestEventSubject(t *testing.T) {
	hand := &Event{Type: EventHandUpdate, GameID: "g1", HandUpdate: &HandUpdate{Seat: 1}}
	assert.Empty(t, hand.Subject(), "未分配频道的手牌更新不能发布")

	hand.Channel = BuildSeatSubject("g1", 1, "k")
	assert.Equal(t, "hukum.game.g1.seat.1.k", hand.Subject())

	state := &Event{Type: EventStateSync, GameID: "g1"}
	assert.Equal(t, BuildEventsSubject("g1"), state.Subject())
}
