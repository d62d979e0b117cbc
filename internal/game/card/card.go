package card

import (
	"fmt"
	"sort"
	"strings"
)

// Suit 花色
type Suit int8

const (
	Clubs    Suit = iota // 梅花
	Diamonds             // 方块
	Hearts               // 红桃
	Spades               // 黑桃
)

// SuitCount 花色数量
const SuitCount = 4

var suitNames = [...]string{"Clubs", "Diamonds", "Hearts", "Spades"}

// String 返回花色名称
func (s Suit) String() string {
	if !s.Valid() {
		return "Unknown"
	}
	return suitNames[s]
}

// Valid 是否为合法花色
func (s Suit) Valid() bool {
	return s >= Clubs && s <= Spades
}

// MarshalText 以名称序列化 (JSON 中为 "Hearts" 这样的字符串)
func (s Suit) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid suit: %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText 从名称解析
func (s *Suit) UnmarshalText(text []byte) error {
	parsed, err := ParseSuit(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSuit 解析花色名称（大小写不敏感）
func ParseSuit(name string) (Suit, error) {
	for i, n := range suitNames {
		if strings.EqualFold(n, name) {
			return Suit(i), nil
		}
	}
	return 0, fmt.Errorf("unknown suit %q", name)
}

// AllSuits 返回全部花色
func AllSuits() []Suit {
	return []Suit{Clubs, Diamonds, Hearts, Spades}
}

// Rank 点数，按大小排列 7 < 8 < ... < Ace
type Rank int8

const (
	Seven Rank = iota + 7
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

var rankNames = map[Rank]string{
	Seven: "7",
	Eight: "8",
	Nine:  "9",
	Ten:   "10",
	Jack:  "Jack",
	Queen: "Queen",
	King:  "King",
	Ace:   "Ace",
}

// String 返回点数名称
func (r Rank) String() string {
	if name, ok := rankNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Valid 是否为合法点数
func (r Rank) Valid() bool {
	return r >= Seven && r <= Ace
}

// MarshalText 以名称序列化
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid rank: %d", r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText 从名称解析
func (r *Rank) UnmarshalText(text []byte) error {
	parsed, err := ParseRank(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRank 解析点数名称，支持 "7".."10"、"Jack"/"J" 等写法
func ParseRank(name string) (Rank, error) {
	for r, n := range rankNames {
		if strings.EqualFold(n, name) {
			return r, nil
		}
	}
	switch strings.ToUpper(name) {
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	case "A":
		return Ace, nil
	}
	return 0, fmt.Errorf("unknown rank %q", name)
}

// AllRanks 返回全部点数（从小到大）
func AllRanks() []Rank {
	return []Rank{Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
}

// Card 扑克牌，不可变值类型
type Card struct {
	Suit Suit `json:"suit"` // 花色
	Rank Rank `json:"rank"` // 点数
}

// New 创建一张牌
func New(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String 返回牌的字符串表示，如 "King-Hearts"
func (c Card) String() string {
	return c.Rank.String() + "-" + c.Suit.String()
}

// Valid 是否为 32 张牌中的一张
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

// Hand 手牌（顺序无关）
type Hand []Card

// Contains 是否持有某张牌
func (h Hand) Contains(target Card) bool {
	for _, c := range h {
		if c == target {
			return true
		}
	}
	return false
}

// HasSuit 是否持有某花色
func (h Hand) HasSuit(suit Suit) bool {
	for _, c := range h {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// CountSuit 统计某花色张数
func (h Hand) CountSuit(suit Suit) int {
	count := 0
	for _, c := range h {
		if c.Suit == suit {
			count++
		}
	}
	return count
}

// Remove 移除一张牌，返回新手牌；不持有时返回 false
func (h Hand) Remove(target Card) (Hand, bool) {
	for i, c := range h {
		if c == target {
			result := make(Hand, 0, len(h)-1)
			result = append(result, h[:i]...)
			return append(result, h[i+1:]...), true
		}
	}
	return h, false
}

// Clone 复制手牌
func (h Hand) Clone() Hand {
	result := make(Hand, len(h))
	copy(result, h)
	return result
}

// Sort 按花色、点数排序
func (h Hand) Sort() {
	sort.Slice(h, func(i, j int) bool {
		if h[i].Suit != h[j].Suit {
			return h[i].Suit < h[j].Suit
		}
		return h[i].Rank < h[j].Rank
	})
}
