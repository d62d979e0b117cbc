package hukum

import (
	"errors"
	"log/slog"
	"time"

	"sudooom.hukum/internal/game/card"
)

// Rotation 每轮首家轮换规则
type Rotation string

const (
	RotationClockwise       Rotation = "clockwise"         // 庄家每轮顺时针移一位，首家为庄家下家
	RotationLastTrickWinner Rotation = "last_trick_winner" // 上一轮最后一墩的赢家做首家
)

// Config 引擎配置
type Config struct {
	Rotation     Rotation
	FirstStarter int // 第一轮首家，-1 表示按种子随机
	Scoring      Scoring
	Now          func() time.Time
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Rotation:     RotationClockwise,
		FirstStarter: -1,
		Scoring:      DefaultScoring(),
		Now:          time.Now,
	}
}

// Engine Hukum 牌局状态机
// 同步执行、不做 I/O，调用方负责串行化；相同种子下结果确定
type Engine struct {
	cfg    Config
	state  *State
	logger *slog.Logger
}

// NewEngine 创建新牌局
func NewEngine(gameID string, seed int64, cfg Config) *Engine {
	cfg = normalizeConfig(cfg)
	return &Engine{
		cfg:    cfg,
		state:  NewState(gameID, seed, cfg.Now()),
		logger: slog.Default().With("component", "HukumEngine", "gameId", gameID),
	}
}

// Restore 从快照恢复牌局
func Restore(state *State, cfg Config) *Engine {
	return &Engine{
		cfg:    normalizeConfig(cfg),
		state:  state.Clone(),
		logger: slog.Default().With("component", "HukumEngine", "gameId", state.GameID),
	}
}

func normalizeConfig(cfg Config) Config {
	if cfg.Rotation == "" {
		cfg.Rotation = RotationClockwise
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Scoring.TargetScore <= 0 {
		cfg.Scoring = DefaultScoring()
	}
	return cfg
}

// State 返回状态快照（深拷贝）
func (e *Engine) State() *State {
	return e.state.Clone()
}

// Version 当前版本号
func (e *Engine) Version() int64 {
	return e.state.Version
}

// Phase 当前阶段
func (e *Engine) Phase() Phase {
	return e.state.Phase
}

// GameID 牌局ID
func (e *Engine) GameID() string {
	return e.state.GameID
}

// PendingSeat 当前需要行动的座位
func (e *Engine) PendingSeat() int {
	return e.state.PendingSeat()
}

// Starter 本轮首家
func (e *Engine) Starter() int {
	return e.state.Starter
}

// SeatOf 玩家所在座位
func (e *Engine) SeatOf(userID int64) (int, bool) {
	return e.state.SeatOf(userID)
}

// SeatUser 座位上的玩家ID
func (e *Engine) SeatUser(seat int) (int64, bool) {
	if !ValidSeat(seat) || e.state.Seats[seat] == nil {
		return 0, false
	}
	return e.state.Seats[seat].UserID, true
}

// Connected 座位上的玩家是否在线
func (e *Engine) Connected(seat int) bool {
	if !ValidSeat(seat) || e.state.Seats[seat] == nil {
		return false
	}
	return e.state.Seats[seat].Connected
}

// AllDisconnected 四个座位都已入座且全部离线
func (e *Engine) AllDisconnected() bool {
	return e.state.SeatedCount() == card.Seats && e.state.ConnectedCount() == 0
}

// ClaimSeat 入座
// 同一玩家再次认领自己的座位视为重连；第四人入座后发牌进入选将阶段
func (e *Engine) ClaimSeat(seat int, userID int64) ([]Event, error) {
	s := e.state

	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if s.Phase == PhaseCompleted {
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}

	if b := s.Seats[seat]; b != nil {
		if b.UserID != userID {
			return nil, ErrSeatTaken.WithContext("seat", seat)
		}
		if b.Connected {
			return nil, nil
		}
		b.Connected = true
		e.logger.Info("Seat reconnected", "seat", seat, "userId", userID)

		events := []Event{}
		if s.Hands[seat] != nil {
			events = append(events, e.handEvent(seat))
		}
		return e.commit(events), nil
	}

	if current, ok := s.SeatOf(userID); ok {
		return nil, ErrAlreadySeated.WithContext("seat", current)
	}
	if s.Phase != PhaseSetup {
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}

	s.Seats[seat] = &Binding{UserID: userID, Connected: true}
	e.logger.Info("Seat claimed", "seat", seat, "userId", userID)

	var events []Event
	if s.SeatedCount() == card.Seats {
		s.StartedAt = e.cfg.Now()
		dealt, err := e.startRound()
		if err != nil {
			s.Seats[seat] = nil
			return nil, err
		}
		events = append(events, dealt...)
	}
	return e.commit(events), nil
}

// SelectHukum 首家选将
func (e *Engine) SelectHukum(seat int, suit card.Suit) ([]Event, error) {
	s := e.state

	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if s.Phase != PhaseHukumSelection {
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}
	if seat != s.Starter {
		return nil, ErrNotYourTurn.WithContext("currentSeat", s.Starter)
	}
	if !suit.Valid() {
		return nil, ErrInvalidSuit
	}

	s.Hukum = &suit
	s.Phase = PhasePlaying
	s.CurrentSeat = s.Starter

	e.logger.Info("Hukum selected", "seat", seat, "hukum", suit.String(), "round", s.Round)
	return e.commit(nil), nil
}

// PlayCard 出牌
// 第 4 张牌结算本墩，赢家下一墩先出；第 8 墩结束后结算本轮
func (e *Engine) PlayCard(seat int, c card.Card) ([]Event, error) {
	s := e.state

	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if s.Phase != PhasePlaying {
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}
	if seat != s.CurrentSeat {
		return nil, ErrNotYourTurn.WithContext("currentSeat", s.CurrentSeat)
	}

	hand := s.Hands[seat]
	if !hand.Contains(c) {
		return nil, ErrCardNotInHand.WithContext("card", c.String())
	}
	if lead, ok := LeadingSuit(s.Table); ok && c.Suit != lead && hand.HasSuit(lead) {
		return nil, ErrMustFollowSuit.WithContext("leading_suit", lead.String())
	}

	s.Hands[seat], _ = hand.Remove(c)
	s.Table = append(s.Table, Play{Seat: seat, Card: c})
	s.Played = append(s.Played, c)

	events := []Event{
		{Kind: EventTablePlay, Seat: seat, Card: c},
		e.handEvent(seat),
	}

	if len(s.Table) < card.Seats {
		s.CurrentSeat = (seat + 1) % card.Seats
		return e.commit(events), nil
	}

	lead, _ := LeadingSuit(s.Table)
	winner, err := ResolveTrick(*s.Hukum, lead, s.Table)
	if err != nil {
		// 桌面满 4 张才会结算，走到这里说明状态已损坏
		e.logger.Error("Failed to resolve trick", "error", err, "table", len(s.Table))
		return nil, err
	}

	s.Tricks[TeamOf(winner)]++
	s.TricksPlayed++
	s.LastTrick = s.Table
	s.LastTrickWinner = winner
	s.Table = nil
	s.CurrentSeat = winner

	e.logger.Debug("Trick resolved",
		"winner", winner,
		"trick", s.TricksPlayed,
		"tricksA", s.Tricks[TeamA],
		"tricksB", s.Tricks[TeamB])

	if s.TricksPlayed == TricksPerRound {
		e.finishRound()
	}
	return e.commit(events), nil
}

// ContinueRound 本轮结束后开始下一轮
func (e *Engine) ContinueRound(seat int) ([]Event, error) {
	s := e.state

	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if s.Seats[seat] == nil {
		return nil, ErrNotSeated.WithContext("seat", seat)
	}
	if s.Phase != PhaseRoundEnd {
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}

	events, err := e.startRound()
	if err != nil {
		return nil, err
	}
	return e.commit(events), nil
}

// Disconnect 玩家离开
// 入座阶段直接让出座位；开局后保留手牌，只标记离线；牌局结束后不再改变状态
func (e *Engine) Disconnect(seat int) ([]Event, error) {
	s := e.state

	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	b := s.Seats[seat]
	if b == nil {
		return nil, ErrNotSeated.WithContext("seat", seat)
	}

	if s.Phase == PhaseCompleted {
		return nil, nil
	}

	if s.Phase == PhaseSetup {
		s.Seats[seat] = nil
		e.logger.Info("Seat released", "seat", seat, "userId", b.UserID)
		return e.commit(nil), nil
	}

	if !b.Connected {
		return nil, nil
	}
	b.Connected = false
	e.logger.Info("Seat disconnected", "seat", seat, "userId", b.UserID)
	return e.commit(nil), nil
}

// AutoAction 替座位执行默认操作（掉线托管、超时）
// 选将阶段选持有最多的花色，出牌阶段出最小的合法牌
func (e *Engine) AutoAction(seat int) ([]Event, error) {
	s := e.state

	switch s.Phase {
	case PhaseHukumSelection:
		if seat != s.Starter {
			return nil, ErrNotYourTurn.WithContext("currentSeat", s.Starter)
		}
		return e.SelectHukum(seat, PreferredHukum(s.Hands[seat]))
	case PhasePlaying:
		if seat != s.CurrentSeat {
			return nil, ErrNotYourTurn.WithContext("currentSeat", s.CurrentSeat)
		}
		c, ok := LowestLegal(s.Hands[seat], s.Table)
		if !ok {
			return nil, ErrCardNotInHand.WithContext("seat", seat)
		}
		return e.PlayCard(seat, c)
	default:
		return nil, ErrInvalidPhase.WithContext("phase", string(s.Phase))
	}
}

// LegalCards 座位当前可出的牌；非出牌阶段返回空
func (e *Engine) LegalCards(seat int) (card.Hand, error) {
	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if e.state.Phase != PhasePlaying {
		return card.Hand{}, nil
	}
	return LegalPlays(e.state.Hands[seat], e.state.Table), nil
}

// HandOf 座位的手牌（副本）
func (e *Engine) HandOf(seat int) (card.Hand, error) {
	if !ValidSeat(seat) {
		return nil, ErrInvalidSeat.WithContext("seat", seat)
	}
	if e.state.Seats[seat] == nil {
		return nil, ErrNotSeated.WithContext("seat", seat)
	}
	hand := e.state.Hands[seat].Clone()
	hand.Sort()
	return hand, nil
}

// startRound 洗牌发牌，确定庄家与首家，进入选将阶段
func (e *Engine) startRound() ([]Event, error) {
	s := e.state
	round := s.Round + 1

	dealer, starter := e.nextSeats(round)

	deck := card.Shuffle(card.BuildDeck(), card.NewRand(s.Seed+int64(round)))
	hands, err := card.Deal(deck, dealer)
	if err != nil {
		if errors.Is(err, card.ErrInvalidDeckSize) {
			return nil, ErrInvalidDeckSize.WithCause(err)
		}
		return nil, err
	}

	s.Round = round
	s.Dealer = dealer
	s.Starter = starter
	s.CurrentSeat = starter
	s.Hukum = nil
	s.Hands = hands
	s.Table = nil
	s.Played = nil
	s.Tricks = [2]int{}
	s.TricksPlayed = 0
	s.LastTrick = nil
	s.Phase = PhaseHukumSelection

	e.logger.Info("Round dealt", "round", round, "dealer", dealer, "starter", starter)

	events := make([]Event, 0, card.Seats)
	for seat := range hands {
		events = append(events, e.handEvent(seat))
	}
	return events, nil
}

// nextSeats 计算下一轮的庄家与首家
func (e *Engine) nextSeats(round int) (dealer, starter int) {
	s := e.state

	if round == 1 {
		starter = e.cfg.FirstStarter
		if !ValidSeat(starter) {
			starter = card.NewRand(s.Seed).Intn(card.Seats)
		}
		return (starter + card.Seats - 1) % card.Seats, starter
	}

	if e.cfg.Rotation == RotationLastTrickWinner && ValidSeat(s.LastTrickWinner) {
		starter = s.LastTrickWinner
		return (starter + card.Seats - 1) % card.Seats, starter
	}

	dealer = (s.Dealer + 1) % card.Seats
	return dealer, (dealer + 1) % card.Seats
}

// finishRound 第 8 墩结束：计分并检查是否结束游戏
func (e *Engine) finishRound() {
	s := e.state

	points := e.cfg.Scoring.RoundPoints(s.Tricks, TeamOf(s.Starter))
	s.Scores[TeamA] += points[TeamA]
	s.Scores[TeamB] += points[TeamB]

	s.Rounds = append(s.Rounds, RoundResult{
		Round:   s.Round,
		Hukum:   *s.Hukum,
		Starter: s.Starter,
		Tricks:  s.Tricks,
		Points:  points,
		Winner:  RoundWinner(s.Tricks),
	})
	s.CurrentSeat = -1

	if winner := e.cfg.Scoring.GameWinner(s.Scores); winner != nil {
		s.Phase = PhaseCompleted
		s.Winner = winner
		s.CompletedAt = e.cfg.Now()
		e.logger.Info("Game completed",
			"winner", winner.String(),
			"scoreA", s.Scores[TeamA],
			"scoreB", s.Scores[TeamB],
			"rounds", s.Round)
		return
	}

	s.Phase = PhaseRoundEnd
	e.logger.Info("Round finished",
		"round", s.Round,
		"tricksA", s.Tricks[TeamA],
		"tricksB", s.Tricks[TeamB],
		"scoreA", s.Scores[TeamA],
		"scoreB", s.Scores[TeamB])
}

// commit 版本号加一并在末尾追加状态同步事件
func (e *Engine) commit(events []Event) []Event {
	e.state.Version++
	return append(events, Event{Kind: EventStateSync, View: e.PublicView()})
}

func (e *Engine) handEvent(seat int) Event {
	hand := e.state.Hands[seat].Clone()
	hand.Sort()
	return Event{Kind: EventHandUpdate, Seat: seat, Hand: hand}
}

// PreferredHukum 选择持有张数最多的花色，张数相同时按 Clubs < Diamonds < Hearts < Spades 取先者
func PreferredHukum(hand card.Hand) card.Suit {
	best := card.Clubs
	bestCount := -1
	for _, suit := range card.AllSuits() {
		if n := hand.CountSuit(suit); n > bestCount {
			best, bestCount = suit, n
		}
	}
	return best
}

// LowestLegal 点数最小的合法牌，点数相同按花色顺序
func LowestLegal(hand card.Hand, table []Play) (card.Card, bool) {
	legal := LegalPlays(hand, table)
	if len(legal) == 0 {
		return card.Card{}, false
	}
	lowest := legal[0]
	for _, c := range legal[1:] {
		if c.Rank < lowest.Rank || (c.Rank == lowest.Rank && c.Suit < lowest.Suit) {
			lowest = c
		}
	}
	return lowest, true
}
