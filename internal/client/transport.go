package client

import (
	"context"

	"github.com/nats-io/nats.go"
)

// Subscription 可取消的订阅
type Subscription interface {
	Unsubscribe() error
}

// Transport 会话使用的消息通道
type Transport interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
	Subscribe(subject string, fn func(data []byte)) (Subscription, error)
}

// NATSTransport 基于 NATS 的 Transport
type NATSTransport struct {
	nc *nats.Conn
}

// NewNATSTransport 创建 NATS Transport
func NewNATSTransport(nc *nats.Conn) *NATSTransport {
	return &NATSTransport{nc: nc}
}

// Request 发送请求并等待应答
func (t *NATSTransport) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := t.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

// Subscribe 订阅频道
func (t *NATSTransport) Subscribe(subject string, fn func(data []byte)) (Subscription, error) {
	sub, err := t.nc.Subscribe(subject, func(msg *nats.Msg) {
		fn(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}
