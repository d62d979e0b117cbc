package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.hukum/internal/game"
	"sudooom.hukum/internal/game/card"
	"sudooom.hukum/internal/game/hukum"
	"sudooom.hukum/internal/jwt"
	"sudooom.hukum/internal/model"
	"sudooom.hukum/internal/protocol"
	"sudooom.hukum/pkg/response"
)

// mockGameService 模拟 GameService
type mockGameService struct {
	createFunc   func(ctx context.Context, seed int64, roster []int64) (string, error)
	snapshotFunc func(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error)
}

func (m *mockGameService) CreateGame(ctx context.Context, seed int64, roster []int64) (string, error) {
	return m.createFunc(ctx, seed, roster)
}

func (m *mockGameService) Snapshot(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error) {
	return m.snapshotFunc(ctx, gameID, userID)
}

// mockHistory 模拟 HistoryReader
type mockHistory struct {
	records []model.GameRecord
	err     error
	limit   int
}

func (m *mockHistory) ListByUser(ctx context.Context, userID int64, limit int) ([]model.GameRecord, error) {
	m.limit = limit
	return m.records, m.err
}

func (m *mockHistory) GetStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	return &model.UserStats{UserID: userID, GamesPlayed: 3, GamesWon: 2}, m.err
}

// APIResponse 用于解析响应体
type APIResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

const testSecret = "test-secret"

func setupTestRouter(games GameService, history HistoryReader) *gin.Engine {
	tokens := jwt.NewService(testSecret, time.Hour, "hukum")
	return SetupRouter(gin.TestMode, []string{"*"}, tokens, NewGameHandler(games), NewHistoryHandler(history))
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any, userID int64) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := jwt.NewService(testSecret, time.Hour, "hukum").GenerateAccessToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func testSnapshot(seat int) *protocol.Snapshot {
	view := hukum.PublicView{GameID: "g1", Version: 4, Phase: hukum.PhaseHukumSelection}
	snap := &protocol.Snapshot{
		State: &protocol.Event{Type: protocol.EventStateSync, GameID: "g1", Seq: 4, Version: 4, StateSync: &view},
	}
	if seat >= 0 {
		snap.Hand = &protocol.Event{
			Type:       protocol.EventHandUpdate,
			GameID:     "g1",
			Seq:        1,
			Version:    4,
			HandUpdate: &protocol.HandUpdate{Seat: seat, Cards: card.Hand{card.New(card.Clubs, card.Ace)}},
		}
	}
	return snap
}

func TestAuthRequired(t *testing.T) {
	router := setupTestRouter(&mockGameService{}, &mockHistory{})

	rec, resp := doRequest(t, router, http.MethodGet, "/api/v1/games/g1/state", nil, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, response.CodeTokenInvalid, resp.Code)
}

func TestCreateGame(t *testing.T) {
	games := &mockGameService{
		createFunc: func(ctx context.Context, seed int64, roster []int64) (string, error) {
			assert.Equal(t, int64(42), seed)
			assert.Equal(t, []int64{1, 2, 3, 4}, roster)
			return "g1", nil
		},
	}
	router := setupTestRouter(games, &mockHistory{})

	seed := int64(42)
	_, resp := doRequest(t, router, http.MethodPost, "/api/v1/games", CreateGameRequest{Roster: []int64{1, 2, 3, 4}, Seed: &seed}, 1)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var data struct {
		GameID string `json:"gameId"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "g1", data.GameID)

	_, resp = doRequest(t, router, http.MethodPost, "/api/v1/games", CreateGameRequest{Roster: []int64{1, 2, 3, 4, 5}}, 1)
	assert.Equal(t, response.CodeInvalidParams, resp.Code)
}

func TestGetState(t *testing.T) {
	games := &mockGameService{
		snapshotFunc: func(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error) {
			switch gameID {
			case "g1":
				assert.Equal(t, int64(101), userID)
				return testSnapshot(2), 2, nil
			case "busy":
				return nil, -1, game.ErrGameBusy
			default:
				return nil, -1, game.ErrGameNotFound.WithContext("gameId", gameID)
			}
		},
	}
	router := setupTestRouter(games, &mockHistory{})

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/games/g1/state", nil, 101)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var data struct {
		Seat  int             `json:"seat"`
		State *protocol.Event `json:"state"`
		Hand  *protocol.Event `json:"hand"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, 2, data.Seat)
	assert.Equal(t, int64(4), data.State.Seq)
	assert.Equal(t, hukum.PhaseHukumSelection, data.State.StateSync.Phase)
	assert.Len(t, data.Hand.HandUpdate.Cards, 1)

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/games/missing/state", nil, 101)
	assert.Equal(t, response.CodeGameNotFound, resp.Code)

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/games/busy/hand", nil, 101)
	assert.Equal(t, response.CodeGameBusy, resp.Code)
}

func TestGetHandNotSeated(t *testing.T) {
	games := &mockGameService{
		snapshotFunc: func(ctx context.Context, gameID string, userID int64) (*protocol.Snapshot, int, error) {
			return testSnapshot(-1), -1, nil
		},
	}
	router := setupTestRouter(games, &mockHistory{})

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/games/g1/hand", nil, 999)
	assert.Equal(t, response.CodeGameRejected, resp.Code)
}

func TestHistory(t *testing.T) {
	history := &mockHistory{records: []model.GameRecord{{GameID: "g1", WinnerTeam: "A", Players: []int64{1, 2, 3, 4}}}}
	router := setupTestRouter(&mockGameService{}, history)

	_, resp := doRequest(t, router, http.MethodGet, "/api/v1/users/me/history", nil, 1)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, defaultHistoryLimit, history.limit)

	var records []model.GameRecord
	require.NoError(t, json.Unmarshal(resp.Data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "g1", records[0].GameID)

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/users/me/history?limit=500", nil, 1)
	assert.Equal(t, response.CodeInvalidParams, resp.Code)

	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/users/me/stats", nil, 1)
	require.Equal(t, response.CodeSuccess, resp.Code)
	var stats model.UserStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, int64(1), stats.UserID)
	assert.Equal(t, 2, stats.GamesWon)

	history.err = errors.New("db down")
	_, resp = doRequest(t, router, http.MethodGet, "/api/v1/users/me/stats", nil, 1)
	assert.Equal(t, response.CodeDBError, resp.Code)
}
