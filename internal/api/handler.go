package api

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sudooom.hukum/internal/model"
	"sudooom.hukum/internal/protocol"
	"sudooom.hukum/pkg/response"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GameService 牌局服务
type GameService interface {
	CreateGame(ctx context.Context, seed int64, roster []int64) (string, error)
	Snapshot(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error)
}

// HistoryReader 历史记录查询
type HistoryReader interface {
	ListByUser(ctx context.Context, userID int64, limit int) ([]model.GameRecord, error)
	GetStats(ctx context.Context, userID int64) (*model.UserStats, error)
}

// GameHandler 牌局接口
type GameHandler struct {
	games GameService
}

// NewGameHandler 创建牌局处理器
func NewGameHandler(games GameService) *GameHandler {
	return &GameHandler{games: games}
}

// CreateGameRequest 创建牌局请求
type CreateGameRequest struct {
	Roster []int64 `json:"roster" binding:"max=4"`
	Seed   *int64  `json:"seed"`
}

// CreateGame 创建牌局
// POST /api/v1/games
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}

	gameID, err := h.games.CreateGame(c.Request.Context(), seed, req.Roster)
	if err != nil {
		response.ErrorFromGameError(c, err)
		return
	}

	response.Success(c, gin.H{"gameId": gameID})
}

// GetState 公共快照 + 自己的手牌
// GET /api/v1/games/:id/state
func (h *GameHandler) GetState(c *gin.Context) {
	snap, seat, err := h.games.Snapshot(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		response.ErrorFromGameError(c, err)
		return
	}

	response.Success(c, gin.H{
		"seat":  seat,
		"state": snap.State,
		"hand":  snap.Hand,
	})
}

// GetHand 自己的手牌
// GET /api/v1/games/:id/hand
func (h *GameHandler) GetHand(c *gin.Context) {
	snap, seat, err := h.games.Snapshot(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		response.ErrorFromGameError(c, err)
		return
	}
	if snap.Hand == nil {
		response.ErrorWithMsg(c, response.CodeGameRejected, "未入座")
		return
	}

	response.Success(c, gin.H{
		"seat": seat,
		"hand": snap.Hand,
	})
}

// HistoryHandler 战绩接口
type HistoryHandler struct {
	history HistoryReader
}

// NewHistoryHandler 创建战绩处理器
func NewHistoryHandler(history HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// ListHistory 当前用户的牌局记录
// GET /api/v1/users/me/history?limit=20
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryLimit {
			response.ErrorWithMsg(c, response.CodeInvalidParams, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.history.ListByUser(c.Request.Context(), GetUserID(c), limit)
	if err != nil {
		response.Error(c, response.CodeDBError)
		return
	}

	response.Success(c, records)
}

// GetStats 当前用户的统计
// GET /api/v1/users/me/stats
func (h *HistoryHandler) GetStats(c *gin.Context) {
	stats, err := h.history.GetStats(c.Request.Context(), GetUserID(c))
	if err != nil {
		response.Error(c, response.CodeDBError)
		return
	}

	response.Success(c, stats)
}
