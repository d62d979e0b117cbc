package nats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"

	"sudooom.hukum/internal/protocol"
)

// ErrNoChannel 私有事件没有分配频道
var ErrNoChannel = errors.New("event has no channel")

// EventPublisher 牌局事件发布器
// 公共事件发往 hukum.game.{gameId}.events，手牌更新只发往对应座位的带密钥频道
type EventPublisher struct {
	nc     *nats.Conn
	logger *slog.Logger
}

// NewEventPublisher 创建事件发布器
func NewEventPublisher(nc *nats.Conn) *EventPublisher {
	return &EventPublisher{
		nc:     nc,
		logger: slog.Default().With("component", "EventPublisher"),
	}
}

// Publish 发布单个事件
func (p *EventPublisher) Publish(ctx context.Context, ev *protocol.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to marshal event", "error", err, "type", ev.Type)
		return err
	}

	subject := ev.Subject()
	if subject == "" {
		return ErrNoChannel
	}
	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Error("Failed to publish event", "subject", subject, "error", err)
		return err
	}

	p.logger.Debug("Published event",
		"subject", subject,
		"type", ev.Type,
		"seq", ev.Seq,
		"version", ev.Version)
	return nil
}
