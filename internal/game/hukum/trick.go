package hukum

import (
	"sudooom.hukum/internal/game/card"
)

// Play 一次出牌：座位 + 牌
type Play struct {
	Seat int       `json:"seat"` // 座位 0..3
	Card card.Card `json:"card"` // 打出的牌
}

// ResolveTrick 结算一墩牌，返回赢家座位
// 有将牌 (hukum) 时只在将牌中比大小，否则只在首出花色中比大小，点数最大者胜
func ResolveTrick(trump, leading card.Suit, plays []Play) (int, error) {
	if len(plays) < card.Seats {
		return -1, ErrIncompleteTrick.WithContext("plays", len(plays))
	}

	winner := -1
	var best card.Rank
	trumped := false

	for _, p := range plays {
		switch {
		case p.Card.Suit == trump:
			if !trumped || p.Card.Rank > best {
				winner, best = p.Seat, p.Card.Rank
			}
			trumped = true
		case trumped:
			// 已有将牌，其他花色不参与比较
		case p.Card.Suit == leading:
			if winner < 0 || p.Card.Rank > best {
				winner, best = p.Seat, p.Card.Rank
			}
		}
	}

	// 正常流程中首张牌即首出花色；调用方传入的首出花色无人出时归首家
	if winner < 0 {
		winner = plays[0].Seat
	}
	return winner, nil
}

// LeadingSuit 首出花色；桌面为空时返回 false
func LeadingSuit(table []Play) (card.Suit, bool) {
	if len(table) == 0 {
		return 0, false
	}
	return table[0].Card.Suit, true
}

// LegalPlays 根据首出花色计算可出的牌
// 有首出花色的牌时只能出该花色，否则任意出牌
func LegalPlays(hand card.Hand, table []Play) card.Hand {
	lead, ok := LeadingSuit(table)
	if !ok || !hand.HasSuit(lead) {
		return hand.Clone()
	}

	legal := make(card.Hand, 0, len(hand))
	for _, c := range hand {
		if c.Suit == lead {
			legal = append(legal, c)
		}
	}
	return legal
}
