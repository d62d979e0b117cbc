package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/protocol"
)

// Session 单个牌局的客户端会话
// 频道事件经由一个通道进入 Reduce，视图变化通过 Updates 通知（只保留最新一份）
type Session struct {
	transport Transport
	gameID    string
	token     string
	timeout   time.Duration

	events  chan *protocol.Event
	updates chan View
	done    chan struct{}
	stop    sync.Once
	wg      sync.WaitGroup

	mu       sync.Mutex
	view     View
	subs     []Subscription
	finished bool // updates 已关闭

	logger *slog.Logger
}

// NewSession 创建会话
func NewSession(transport Transport, gameID, token string, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Session{
		transport: transport,
		gameID:    gameID,
		token:     token,
		timeout:   timeout,
		events:    make(chan *protocol.Event, 256),
		updates:   make(chan View, 1),
		done:      make(chan struct{}),
		view:      NewView(gameID),
		logger:    slog.Default().With("component", "ClientSession", "gameId", gameID),
	}
}

// Join 订阅公共频道、认领座位、订阅应答中下发的座位频道并拉取快照
// 先订阅后拉快照，快照之前的事件会因序号过旧被丢弃
func (s *Session) Join(ctx context.Context, seat int) error {
	if err := s.subscribe(protocol.BuildEventsSubject(s.gameID)); err != nil {
		return err
	}

	req := protocol.NewRequest(protocol.ActionClaimSeat, s.gameID, s.token)
	req.Seat = seat
	resp, err := s.request(ctx, req)
	if err != nil {
		s.abort()
		return err
	}

	if resp.Channel == "" {
		s.abort()
		return ErrNoSeatChannel
	}
	if err := s.subscribe(resp.Channel); err != nil {
		s.abort()
		return err
	}

	s.mu.Lock()
	s.view.Seat = resp.Seat
	s.mu.Unlock()

	if err := s.Resync(ctx); err != nil {
		s.abort()
		return err
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("Joined game", "seat", resp.Seat, "version", resp.Version)
	return nil
}

// Resync 重新拉取快照
func (s *Session) Resync(ctx context.Context) error {
	resp, err := s.request(ctx, protocol.NewRequest(protocol.ActionSnapshot, s.gameID, s.token))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ApplySnapshot(s.view, resp.Snapshot, resp.Seat)
	s.notifyLocked()
	return nil
}

// SelectHukum 选将
func (s *Session) SelectHukum(ctx context.Context, suit card.Suit) error {
	req := protocol.NewRequest(protocol.ActionSelectHukum, s.gameID, s.token)
	req.Suit = &suit
	_, err := s.request(ctx, req)
	return err
}

// PlayCard 乐观出牌：先在本地标记，服务端拒绝后回滚
func (s *Session) PlayCard(ctx context.Context, c card.Card) error {
	req := protocol.NewRequest(protocol.ActionPlayCard, s.gameID, s.token)
	req.Card = &c

	s.mu.Lock()
	next, err := Tentative(s.view, req.RequestID, c)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.view = next
	s.notifyLocked()
	s.mu.Unlock()

	_, err = s.request(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.view = Rollback(s.view, req.RequestID)
	} else {
		s.view = Confirm(s.view, req.RequestID)
	}
	s.notifyLocked()
	return err
}

// ContinueRound 开始下一轮
func (s *Session) ContinueRound(ctx context.Context) error {
	_, err := s.request(ctx, protocol.NewRequest(protocol.ActionContinueRound, s.gameID, s.token))
	return err
}

// Leave 离开牌局
// 立即关闭会话并取消所有订阅，离开请求的应答以及之后到达的事件都被丢弃
func (s *Session) Leave(ctx context.Context) error {
	s.mu.Lock()
	if s.view.Closed {
		s.mu.Unlock()
		return nil
	}
	s.view = Close(s.view)
	s.mu.Unlock()

	s.abort()

	data, err := json.Marshal(protocol.NewRequest(protocol.ActionLeave, s.gameID, s.token))
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, err = s.transport.Request(reqCtx, protocol.SubjectRequest, data)
	return err
}

// View 当前视图
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Updates 视图变化通知，会话关闭后通道关闭
func (s *Session) Updates() <-chan View {
	return s.updates
}

// loop 事件处理协程
func (s *Session) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

func (s *Session) apply(ev *protocol.Event) {
	s.mu.Lock()
	next, err := Reduce(s.view, ev)
	s.view = next
	if err == nil {
		s.notifyLocked()
	}
	s.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, ErrStaleEvent), errors.Is(err, ErrSessionClosed):
	case errors.Is(err, ErrSequenceGap):
		s.logger.Info("Sequence gap, resyncing", "type", ev.Type, "seq", ev.Seq)
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.Resync(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			s.logger.Warn("Failed to resync", "error", err)
		}
	default:
		s.logger.Warn("Failed to apply event", "error", err, "type", ev.Type)
	}
}

// request 发送请求；会话关闭后到达的应答被丢弃
func (s *Session) request(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	if s.closed() {
		return nil, ErrSessionClosed
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.transport.Request(reqCtx, protocol.SubjectRequest, data)
	if err != nil {
		return nil, err
	}
	if s.closed() {
		return nil, ErrSessionClosed
	}

	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return &resp, err
	}
	return &resp, nil
}

func (s *Session) subscribe(subject string) error {
	sub, err := s.transport.Subscribe(subject, func(data []byte) {
		var ev protocol.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			s.logger.Warn("Failed to unmarshal event", "error", err, "subject", subject)
			return
		}
		select {
		case s.events <- &ev:
		case <-s.done:
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *Session) unsubscribeAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe", "error", err)
		}
	}
}

// abort 取消订阅并停止事件协程
func (s *Session) abort() {
	s.unsubscribeAll()
	s.stop.Do(func() { close(s.done) })
	s.wg.Wait()
	s.finish()
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Closed
}

// notifyLocked 用最新视图替换未读取的通知（调用方持有 mu）
func (s *Session) notifyLocked() {
	if s.finished {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.view
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		s.finished = true
		close(s.updates)
	}
}
