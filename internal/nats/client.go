package nats

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"sudooom.hukum/internal/config"
)

// Client NATS 连接
// 服务端与机器人共用，name 出现在 NATS 监控的连接列表中
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewClient 连接 NATS，断线后按配置重连
func NewClient(cfg config.NATSConfig, name string) (*Client, error) {
	logger := slog.Default().With("component", "NATSClient", "name", name)

	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Warn("NATS async error", "subject", subject, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("NATS connected", "url", conn.ConnectedUrl())
	return &Client{conn: conn, logger: logger}, nil
}

// Conn 底层连接
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close 先 Drain，未处理完的请求处理完毕后关闭
func (c *Client) Close() {
	if c.conn == nil || c.conn.IsClosed() {
		return
	}
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", "error", err)
		c.conn.Close()
	}
}

// IsConnected 健康检查使用
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}
