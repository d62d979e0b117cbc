package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/model"
	"sudooom.hukum/internal/protocol"
	"sudooom.hukum/internal/store"
	"sudooom.hukum/internal/task"
)

// StateStore 权威状态存储
type StateStore interface {
	Lock(ctx context.Context, gameID string) (store.Unlocker, error)
	LoadSnapshot(ctx context.Context, gameID string) (*store.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *store.Snapshot) error
	ClaimSeat(ctx context.Context, gameID string, seat int, userID int64) (bool, error)
	ReleaseSeat(ctx context.Context, gameID string, seat int, userID int64) error
	SetRoster(ctx context.Context, gameID string, userIDs ...int64) error
	InRoster(ctx context.Context, gameID string, userID int64) (bool, error)
	Archive(ctx context.Context, gameID string) error
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, ev *protocol.Event) error
}

// HistoryRecorder 牌局结果持久化
type HistoryRecorder interface {
	RecordGame(ctx context.Context, rec *model.GameRecord) error
}

// TimerScheduler 回合计时
type TimerScheduler interface {
	After(d time.Duration, t *task.Task) error
	RemoveTask(taskID string) bool
}

// Authenticator 从令牌解析玩家ID
type Authenticator interface {
	CurrentUser(token string) (int64, error)
}

// ServiceConfig 会话服务配置
type ServiceConfig struct {
	Engine          hukum.Config
	TurnTimeout     time.Duration // 0 表示在线玩家不限时
	DisconnectGrace time.Duration // 掉线座位轮到行动时的托管等待
	ChannelSecret   []byte        // 座位私有频道密钥
}

// Result 一次操作的结果
type Result struct {
	Version int64
	Seat    int
}

const maxTimerRetries = 3

// BuildTimerID 牌局计时任务ID，每局同时只有一个
func BuildTimerID(gameID string) string {
	return "turn:" + gameID
}

// GameService 权威会话服务
// 每次变更都在 Redis 牌局锁内完成：加载 → 应用 → 保存 → 发布 → 解锁
type GameService struct {
	manager   *GameManager
	store     StateStore
	publisher Publisher
	history   HistoryRecorder
	timers    TimerScheduler
	auth      Authenticator
	cfg       ServiceConfig
	logger    *slog.Logger
}

// NewGameService 创建会话服务
func NewGameService(
	manager *GameManager,
	stateStore StateStore,
	publisher Publisher,
	history HistoryRecorder,
	timers TimerScheduler,
	auth Authenticator,
	cfg ServiceConfig,
) *GameService {
	return &GameService{
		manager:   manager,
		store:     stateStore,
		publisher: publisher,
		history:   history,
		timers:    timers,
		auth:      auth,
		cfg:       cfg,
		logger:    slog.Default().With("component", "GameService"),
	}
}

// Handle 处理客户端请求，返回同步应答
func (s *GameService) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	userID, err := s.auth.CurrentUser(req.Token)
	if err != nil {
		return protocol.ErrorResponse(req.RequestID, ErrUnauthorized.WithCause(err))
	}
	if req.GameID == "" {
		return protocol.ErrorResponse(req.RequestID, ErrBadRequest.WithContext("field", "gameId"))
	}

	if req.Action == protocol.ActionSnapshot {
		snap, seat, err := s.Snapshot(ctx, req.GameID, userID)
		if err != nil {
			return s.reject(req, userID, err)
		}
		resp := &protocol.Response{
			RequestID: req.RequestID,
			OK:        true,
			Version:   snap.State.Version,
			Seat:      seat,
			Snapshot:  snap,
		}
		if seat >= 0 {
			resp.Channel = s.SeatChannel(req.GameID, seat, userID)
		}
		return resp
	}

	var result *Result
	switch req.Action {
	case protocol.ActionClaimSeat:
		result, err = s.ClaimSeat(ctx, req.GameID, req.Seat, userID)
	case protocol.ActionSelectHukum:
		if req.Suit == nil {
			return s.reject(req, userID, ErrBadRequest.WithContext("field", "suit"))
		}
		result, err = s.SelectHukum(ctx, req.GameID, userID, *req.Suit)
	case protocol.ActionPlayCard:
		if req.Card == nil {
			return s.reject(req, userID, ErrBadRequest.WithContext("field", "card"))
		}
		result, err = s.PlayCard(ctx, req.GameID, userID, *req.Card)
	case protocol.ActionContinueRound:
		result, err = s.ContinueRound(ctx, req.GameID, userID)
	case protocol.ActionLeave:
		result, err = s.Leave(ctx, req.GameID, userID)
	default:
		err = ErrBadRequest.WithContext("action", string(req.Action))
	}
	if err != nil {
		return s.reject(req, userID, err)
	}

	resp := &protocol.Response{
		RequestID: req.RequestID,
		OK:        true,
		Version:   result.Version,
		Seat:      result.Seat,
	}
	if req.Action == protocol.ActionClaimSeat {
		resp.Channel = s.SeatChannel(req.GameID, result.Seat, userID)
	}
	return resp
}

// SeatChannel 玩家所在座位的私有频道
func (s *GameService) SeatChannel(gameID string, seat int, userID int64) string {
	return protocol.BuildSeatSubject(gameID, seat, protocol.SeatKey(s.cfg.ChannelSecret, gameID, seat, userID))
}

// reject 拒绝只回给请求方，基础设施错误记录日志
func (s *GameService) reject(req *protocol.Request, userID int64, err error) *protocol.Response {
	if hukum.AsGameError(err) == nil {
		s.logger.Error("Request failed",
			"error", err,
			"action", req.Action,
			"gameId", req.GameID,
			"userId", userID)
	} else {
		s.logger.Debug("Request rejected",
			"error", err,
			"action", req.Action,
			"gameId", req.GameID,
			"userId", userID)
	}
	return protocol.ErrorResponse(req.RequestID, err)
}

// CreateGame 创建牌局；roster 非空时只有名单内的玩家可以入座
func (s *GameService) CreateGame(ctx context.Context, seed int64, roster []int64) (string, error) {
	if len(roster) > card.Seats {
		return "", ErrBadRequest.WithContext("roster", len(roster))
	}

	gameID := uuid.NewString()
	g := NewGame(hukum.NewEngine(gameID, seed, s.cfg.Engine))

	if err := s.store.SaveSnapshot(ctx, g.Snapshot()); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	if len(roster) > 0 {
		if err := s.store.SetRoster(ctx, gameID, roster...); err != nil {
			return "", err
		}
	}
	s.manager.Put(g)

	s.logger.Info("Game created", "gameId", gameID, "roster", roster)
	return gameID, nil
}

// Snapshot 公共快照 + 玩家自己的手牌；玩家未入座时座位为 -1
func (s *GameService) Snapshot(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error) {
	snap, err := s.store.LoadSnapshot(ctx, gameID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return nil, -1, ErrGameNotFound.WithContext("gameId", gameID)
	}
	if err != nil {
		return nil, -1, err
	}

	engine := hukum.Restore(snap.State, s.cfg.Engine)
	version := engine.Version()

	out := &protocol.Snapshot{
		State: protocol.FromEngine(gameID, version, hukum.Event{
			Kind: hukum.EventStateSync,
			View: engine.PublicView(),
		}),
	}
	out.State.Seq = snap.PublicSeq

	seat, ok := engine.SeatOf(userID)
	if !ok {
		return out, -1, nil
	}

	hand, err := engine.HandOf(seat)
	if err != nil {
		return nil, -1, err
	}
	out.Hand = protocol.FromEngine(gameID, version, hukum.Event{
		Kind: hukum.EventHandUpdate,
		Seat: seat,
		Hand: hand,
	})
	out.Hand.Seq = snap.SeatSeq[seat]

	return out, seat, nil
}

// ClaimSeat 入座或重连
// 引擎校验通过后再用 HSETNX 认领，失败则回滚并返回 ErrSeatTaken；保存失败时释放 Redis 座位
func (s *GameService) ClaimSeat(ctx context.Context, gameID string, seat int, userID int64) (*Result, error) {
	version, err := s.mutate(ctx, gameID, func(ctx context.Context, g *Game) ([]hukum.Event, error) {
		allowed, err := s.store.InRoster(ctx, gameID, userID)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrNotInRoster.WithContext("userId", userID)
		}

		_, reconnect := g.engine.SeatOf(userID)
		events, err := g.engine.ClaimSeat(seat, userID)
		if err != nil || len(events) == 0 {
			return events, err
		}

		claimed, err := s.store.ClaimSeat(ctx, gameID, seat, userID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, hukum.ErrSeatTaken.WithContext("seat", seat)
		}
		if !reconnect {
			// 快照保存失败时释放刚认领的座位
			g.onRollback(func(ctx context.Context) error {
				return s.store.ReleaseSeat(ctx, gameID, seat, userID)
			})
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{Version: version, Seat: seat}, nil
}

// SelectHukum 选将
func (s *GameService) SelectHukum(ctx context.Context, gameID string, userID int64, suit card.Suit) (*Result, error) {
	return s.seatAction(ctx, gameID, userID, func(g *Game, seat int) ([]hukum.Event, error) {
		return g.engine.SelectHukum(seat, suit)
	})
}

// PlayCard 出牌
func (s *GameService) PlayCard(ctx context.Context, gameID string, userID int64, c card.Card) (*Result, error) {
	return s.seatAction(ctx, gameID, userID, func(g *Game, seat int) ([]hukum.Event, error) {
		return g.engine.PlayCard(seat, c)
	})
}

// ContinueRound 开始下一轮
func (s *GameService) ContinueRound(ctx context.Context, gameID string, userID int64) (*Result, error) {
	return s.seatAction(ctx, gameID, userID, func(g *Game, seat int) ([]hukum.Event, error) {
		return g.engine.ContinueRound(seat)
	})
}

// Leave 离开牌局；入座阶段同时释放 Redis 中的座位
func (s *GameService) Leave(ctx context.Context, gameID string, userID int64) (*Result, error) {
	return s.seatAction(ctx, gameID, userID, func(g *Game, seat int) ([]hukum.Event, error) {
		setup := g.engine.Phase() == hukum.PhaseSetup

		events, err := g.engine.Disconnect(seat)
		if err != nil {
			return nil, err
		}
		if setup {
			if err := s.store.ReleaseSeat(ctx, gameID, seat, userID); err != nil {
				return nil, err
			}
		}
		return events, nil
	})
}

// seatAction 以玩家当前座位执行操作
func (s *GameService) seatAction(ctx context.Context, gameID string, userID int64, fn func(g *Game, seat int) ([]hukum.Event, error)) (*Result, error) {
	seat := -1
	version, err := s.mutate(ctx, gameID, func(ctx context.Context, g *Game) ([]hukum.Event, error) {
		var ok bool
		seat, ok = g.engine.SeatOf(userID)
		if !ok {
			return nil, hukum.ErrNotSeated.WithContext("userId", userID)
		}
		return fn(g, seat)
	})
	if err != nil {
		return nil, err
	}
	return &Result{Version: version, Seat: seat}, nil
}

// mutate 在牌局锁内执行一次变更
// apply 失败或保存失败时回滚到变更前的状态，不发布任何事件
func (s *GameService) mutate(ctx context.Context, gameID string, apply func(ctx context.Context, g *Game) ([]hukum.Event, error)) (int64, error) {
	lock, err := s.store.Lock(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrLockBusy) {
			return 0, ErrGameBusy.WithContext("gameId", gameID)
		}
		return 0, err
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("Failed to release game lock", "error", err, "gameId", gameID)
		}
	}()

	g, err := s.load(ctx, gameID)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	before := g.engine.State()
	publicSeq, seatSeq := g.publicSeq, g.seatSeq
	defer func() { g.undo = nil }()
	rollback := func() {
		g.engine = hukum.Restore(before, s.cfg.Engine)
		g.publicSeq, g.seatSeq = publicSeq, seatSeq
		// 外部副作用按登记的逆序撤销
		for i := len(g.undo) - 1; i >= 0; i-- {
			if err := g.undo[i](context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("Failed to undo side effect", "error", err, "gameId", gameID)
			}
		}
	}

	events, err := apply(ctx, g)
	if err != nil {
		rollback()
		return 0, err
	}
	if len(events) == 0 {
		return g.engine.Version(), nil
	}

	out := g.sequence(events)
	for _, ev := range out {
		if ev.HandUpdate == nil {
			continue
		}
		if userID, ok := g.engine.SeatUser(ev.HandUpdate.Seat); ok {
			ev.Channel = s.SeatChannel(gameID, ev.HandUpdate.Seat, userID)
		}
	}
	if err := s.store.SaveSnapshot(ctx, g.snapshotLocked()); err != nil {
		rollback()
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	for _, ev := range out {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			// 客户端发现序号缺口后会重新拉取快照
			s.logger.Warn("Failed to publish event",
				"error", err,
				"gameId", gameID,
				"type", ev.Type,
				"seq", ev.Seq)
		}
	}

	s.afterCommit(ctx, g)
	return g.engine.Version(), nil
}

// load 读取权威快照；本地缓存版本一致时复用缓存
func (s *GameService) load(ctx context.Context, gameID string) (*Game, error) {
	snap, err := s.store.LoadSnapshot(ctx, gameID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		s.manager.Remove(gameID)
		return nil, ErrGameNotFound.WithContext("gameId", gameID)
	}
	if err != nil {
		return nil, err
	}

	if cached, ok := s.manager.Get(gameID); ok && cached.Version() == snap.State.Version {
		return cached, nil
	}

	s.logger.Debug("Reloading game from snapshot", "gameId", gameID, "version", snap.State.Version)
	return s.manager.Put(RestoreGame(snap, s.cfg.Engine)), nil
}

// afterCommit 变更保存后：结束则写历史，全员离线则归档，否则重设计时
func (s *GameService) afterCommit(ctx context.Context, g *Game) {
	timerID := BuildTimerID(g.id)

	if g.engine.Phase() == hukum.PhaseCompleted {
		s.timers.RemoveTask(timerID)
		s.recordHistory(ctx, g)
		s.archive(ctx, g.id)
		return
	}

	if g.engine.AllDisconnected() {
		s.timers.RemoveTask(timerID)
		s.logger.Info("All seats disconnected", "gameId", g.id)
		s.archive(ctx, g.id)
		return
	}

	seat, delay, ok := s.nextDeadline(g)
	if !ok {
		s.timers.RemoveTask(timerID)
		return
	}

	t := task.NewTask(timerID, g.id, s.onTimer).
		WithVersion(g.engine.Version()).
		WithMetadata("seat", seat)
	if err := s.timers.After(delay, t); err != nil {
		s.logger.Warn("Failed to schedule turn timer", "error", err, "gameId", g.id)
	}
}

// nextDeadline 下一次自动操作的座位与等待时长
// 掉线座位轮到行动时托管；在线座位仅在配置了回合超时时计时
func (s *GameService) nextDeadline(g *Game) (int, time.Duration, bool) {
	switch g.engine.Phase() {
	case hukum.PhaseHukumSelection, hukum.PhasePlaying:
		seat := g.engine.PendingSeat()
		if !g.engine.Connected(seat) {
			return seat, s.cfg.DisconnectGrace, true
		}
		return seat, s.cfg.TurnTimeout, s.cfg.TurnTimeout > 0
	case hukum.PhaseRoundEnd:
		// 由首家推进下一轮，首家掉线时托管
		if starter := g.engine.Starter(); !g.engine.Connected(starter) {
			return starter, s.cfg.DisconnectGrace, true
		}
		return -1, s.cfg.TurnTimeout, s.cfg.TurnTimeout > 0
	default:
		return -1, 0, false
	}
}

// onTimer 计时到期：版本未变时替待行动座位执行默认操作
func (s *GameService) onTimer(ctx context.Context, gameID string, version int64, metadata map[string]any) error {
	_, err := s.mutate(ctx, gameID, func(ctx context.Context, g *Game) ([]hukum.Event, error) {
		if g.engine.Version() != version {
			s.logger.Debug("Stale turn timer ignored", "gameId", gameID, "version", version, "current", g.engine.Version())
			return nil, nil
		}

		if g.engine.Phase() == hukum.PhaseRoundEnd {
			for seat := range card.Seats {
				if g.engine.Connected(seat) {
					return g.engine.ContinueRound(seat)
				}
			}
			return nil, nil
		}

		seat := g.engine.PendingSeat()
		s.logger.Info("Auto action", "gameId", gameID, "seat", seat, "phase", g.engine.Phase())
		return g.engine.AutoAction(seat)
	})

	if errors.Is(err, ErrGameBusy) {
		return s.retryTimer(gameID, version, metadata)
	}
	return err
}

// retryTimer 锁冲突时用独立ID重试，版本检查保证不会重复执行
func (s *GameService) retryTimer(gameID string, version int64, metadata map[string]any) error {
	attempt, _ := metadata["attempt"].(int)
	if attempt >= maxTimerRetries {
		return ErrGameBusy.WithContext("gameId", gameID)
	}

	t := task.NewTask(BuildTimerID(gameID)+":retry", gameID, s.onTimer).
		WithVersion(version).
		WithMetadata("attempt", attempt+1)
	return s.timers.After(time.Second, t)
}

// recordHistory 写入牌局结果，失败只记录日志
func (s *GameService) recordHistory(ctx context.Context, g *Game) {
	rec := buildRecord(g.engine.State())
	if err := s.history.RecordGame(ctx, rec); err != nil {
		s.logger.Error("Failed to record game history", "error", err, "gameId", g.id)
		return
	}
	s.logger.Info("Game history recorded",
		"gameId", g.id,
		"winner", rec.WinnerTeam,
		"scoreA", rec.TeamAScore,
		"scoreB", rec.TeamBScore)
}

func (s *GameService) archive(ctx context.Context, gameID string) {
	if err := s.store.Archive(ctx, gameID); err != nil {
		s.logger.Warn("Failed to archive game", "error", err, "gameId", gameID)
	}
}

// buildRecord 由结束状态生成历史记录
func buildRecord(state *hukum.State) *model.GameRecord {
	players := state.Players()
	rec := &model.GameRecord{
		GameID:      state.GameID,
		TeamAScore:  state.Scores[hukum.TeamA],
		TeamBScore:  state.Scores[hukum.TeamB],
		Rounds:      len(state.Rounds),
		Players:     players[:],
		CompletedAt: state.CompletedAt,
	}
	if state.Winner != nil {
		rec.WinnerTeam = state.Winner.String()
	}
	if n := len(state.Rounds); n > 0 {
		rec.HukumSuit = state.Rounds[n-1].Hukum.String()
	}
	if !state.StartedAt.IsZero() && state.CompletedAt.After(state.StartedAt) {
		rec.DurationSeconds = int(state.CompletedAt.Sub(state.StartedAt).Seconds())
	}
	return rec
}
