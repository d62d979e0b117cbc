package card

import (
	"errors"
	"math/rand"
	"time"
)

const (
	// DeckSize 一副牌的张数 (4 花色 x 8 点数)
	DeckSize = 32

	// Seats 座位数
	Seats = 4

	// HandSize 每人手牌数
	HandSize = DeckSize / Seats
)

// ErrInvalidDeckSize 牌堆不是 32 张互不相同的牌
var ErrInvalidDeckSize = errors.New("deck must contain exactly 32 unique cards")

// Deck 有序牌堆
type Deck []Card

// BuildDeck 生成 32 张牌，不保证顺序
func BuildDeck() Deck {
	deck := make(Deck, 0, DeckSize)
	for _, suit := range AllSuits() {
		for _, rank := range AllRanks() {
			deck = append(deck, New(suit, rank))
		}
	}
	return deck
}

// NewRand 创建随机源；相同种子产生相同的洗牌序列，便于回放
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Shuffle 洗牌，返回新的排列，原牌堆不变
// rng 为 nil 时使用当前时间作为种子
func Shuffle(deck Deck, rng *rand.Rand) Deck {
	if rng == nil {
		rng = NewRand(time.Now().UnixNano())
	}
	shuffled := make(Deck, len(deck))
	copy(shuffled, deck)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// Validate 检查是否为完整的一副牌
func (d Deck) Validate() error {
	if len(d) != DeckSize {
		return ErrInvalidDeckSize
	}
	seen := make(map[Card]struct{}, DeckSize)
	for _, c := range d {
		if !c.Valid() {
			return ErrInvalidDeckSize
		}
		if _, dup := seen[c]; dup {
			return ErrInvalidDeckSize
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Deal 发牌：从庄家左手 (dealer+1)%4 开始轮流发，每人 8 张
func Deal(deck Deck, dealer int) ([Seats]Hand, error) {
	var hands [Seats]Hand
	if err := deck.Validate(); err != nil {
		return hands, err
	}

	for i := range hands {
		hands[i] = make(Hand, 0, HandSize)
	}

	seat := (dealer + 1) % Seats
	for _, c := range deck {
		hands[seat] = append(hands[seat], c)
		seat = (seat + 1) % Seats
	}

	return hands, nil
}
