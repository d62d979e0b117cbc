package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.hukum/internal/game"
	"sudooom.hukum/internal/protocol"
)

// RequestHandler 请求处理器接口
type RequestHandler interface {
	Handle(ctx context.Context, req *protocol.Request) *protocol.Response
}

// SubscriberConfig Worker Pool 配置
type SubscriberConfig struct {
	WorkerCount   int           // Worker 数量
	BufferSize    int           // 消息缓冲区大小
	HandleTimeout time.Duration // 单个请求处理超时
}

// RequestSubscriber 请求订阅器
// 以队列组订阅请求主题，由 Worker Pool 处理后回复到 msg.Reply
type RequestSubscriber struct {
	nc           *nats.Conn
	handler      RequestHandler
	logger       *slog.Logger
	subscription *nats.Subscription
	config       SubscriberConfig
	msgChan      chan *nats.Msg
	wg           sync.WaitGroup
	cancelFunc   context.CancelFunc
}

// NewRequestSubscriber 创建请求订阅器
func NewRequestSubscriber(nc *nats.Conn, handler RequestHandler, config SubscriberConfig) *RequestSubscriber {
	// 设置默认值
	if config.WorkerCount <= 0 {
		config.WorkerCount = 32
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 1024
	}
	if config.HandleTimeout <= 0 {
		config.HandleTimeout = 5 * time.Second
	}

	return &RequestSubscriber{
		nc:      nc,
		handler: handler,
		logger:  slog.Default().With("component", "RequestSubscriber"),
		config:  config,
	}
}

// Start 启动订阅
func (s *RequestSubscriber) Start(ctx context.Context) error {
	s.msgChan = make(chan *nats.Msg, s.config.BufferSize)

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(workerCtx)
	}

	// 队列组内每个请求只会被一个节点处理
	sub, err := s.nc.QueueSubscribe(protocol.SubjectRequest, protocol.QueueGroupLogic, func(msg *nats.Msg) {
		select {
		case s.msgChan <- msg:
		default:
			s.logger.Warn("Request buffer full, rejecting request", "bufferSize", s.config.BufferSize)
			s.reply(msg, protocol.ErrorResponse("", game.ErrGameBusy))
		}
	})
	if err != nil {
		cancel()
		return err
	}

	s.subscription = sub
	s.logger.Info("NATS subscriber started",
		"subject", protocol.SubjectRequest,
		"queue", protocol.QueueGroupLogic,
		"workerCount", s.config.WorkerCount,
		"bufferSize", s.config.BufferSize,
	)
	return nil
}

// worker 工作协程
func (s *RequestSubscriber) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.msgChan:
			s.handleRequest(ctx, msg)
		}
	}
}

// handleRequest 处理单个请求并回复
func (s *RequestSubscriber) handleRequest(ctx context.Context, msg *nats.Msg) {
	var req protocol.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("Failed to unmarshal request", "error", err)
		s.reply(msg, protocol.ErrorResponse("", game.ErrBadRequest.WithCause(err)))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.HandleTimeout)
	defer cancel()

	s.logger.Debug("Received request", "requestId", req.RequestID, "action", req.Action, "gameId", req.GameID)
	s.reply(msg, s.handler.Handle(reqCtx, &req))
}

func (s *RequestSubscriber) reply(msg *nats.Msg, resp *protocol.Response) {
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("Failed to respond", "error", err, "requestId", resp.RequestID)
	}
}

// Stop 停止订阅
// 先取消订阅再停止 worker，msgChan 不关闭，避免回调向已关闭的通道发送
func (s *RequestSubscriber) Stop() error {
	if s.subscription != nil {
		if err := s.subscription.Unsubscribe(); err != nil {
			s.logger.Error("Failed to unsubscribe", "error", err)
		}
	}

	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	s.wg.Wait()

	s.logger.Info("NATS subscriber stopped")
	return nil
}

// GetBufferUsage 获取缓冲区使用情况（用于监控）
func (s *RequestSubscriber) GetBufferUsage() (current int, capacity int) {
	if s.msgChan == nil {
		return 0, 0
	}
	return len(s.msgChan), cap(s.msgChan)
}
