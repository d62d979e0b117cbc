package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger Redis / PostgreSQL 连通性检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker NATS 连接状态
type ConnChecker interface {
	IsConnected() bool
}

// Status 健康状态
type Status struct {
	NATS     string `json:"nats"`
	Redis    string `json:"redis"`
	Database string `json:"database"`
}

// Healthy 所有依赖均已连接
func (s *Status) Healthy() bool {
	return s.NATS == "connected" &&
		s.Redis == "connected" &&
		s.Database == "connected"
}

// Checker 健康检查器
type Checker struct {
	nc      ConnChecker
	redis   Pinger
	db      Pinger
	timeout time.Duration
}

// NewChecker 创建健康检查器
func NewChecker(nc ConnChecker, redis Pinger, db Pinger) *Checker {
	return &Checker{
		nc:      nc,
		redis:   redis,
		db:      db,
		timeout: 2 * time.Second,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		NATS:     "disconnected",
		Redis:    "disconnected",
		Database: "disconnected",
	}

	if h.nc != nil && h.nc.IsConnected() {
		status.NATS = "connected"
	}
	if h.ping(ctx, h.redis) {
		status.Redis = "connected"
	}
	if h.ping(ctx, h.db) {
		status.Database = "connected"
	}

	return status
}

func (h *Checker) ping(ctx context.Context, p Pinger) bool {
	if p == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return p.Ping(pingCtx) == nil
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Healthy()
}

// ServeHTTP 就绪检查端点，依赖不可用时返回 503
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Handler 健康检查路由：/health 存活，/ready 就绪
func (h *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/ready", h)
	return mux
}
