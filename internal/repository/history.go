package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sudooom.hukum/internal/model"
)

//go:embed schema.sql
var schema string

// Migrate 建表（幂等）
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}

// HistoryRepository 牌局历史仓库
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository 创建牌局历史仓库
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// RecordGame 写入牌局结果并更新玩家统计，同一事务内完成
// 同一 game_id 只记录一次，重复调用不会重复累计统计
func (r *HistoryRepository) RecordGame(ctx context.Context, rec *model.GameRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO game_history (id, game_id, winner_team, team_a_score, team_b_score, hukum_suit, rounds, duration_seconds, players, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO NOTHING
	`,
		rec.ID,
		rec.GameID,
		rec.WinnerTeam,
		rec.TeamAScore,
		rec.TeamBScore,
		rec.HukumSuit,
		rec.Rounds,
		rec.DurationSeconds,
		rec.Players,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert game history: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	winners := make(map[int64]bool)
	for _, id := range rec.Winners() {
		winners[id] = true
	}

	for _, userID := range rec.Players {
		won := 0
		if winners[userID] {
			won = 1
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_stats (user_id, games_played, games_won, updated_at)
			VALUES ($1, 1, $2, now())
			ON CONFLICT (user_id) DO UPDATE
			SET games_played = user_stats.games_played + 1,
			    games_won = user_stats.games_won + EXCLUDED.games_won,
			    updated_at = now()
		`, userID, won); err != nil {
			return fmt.Errorf("update user stats: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ListByUser 查询玩家参与过的牌局（按结束时间倒序）
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.GameRecord, error) {
	query := `
		SELECT id, game_id, winner_team, team_a_score, team_b_score, hukum_suit, rounds, duration_seconds, players, completed_at
		FROM game_history
		WHERE $1 = ANY(players)
		ORDER BY completed_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.GameRecord{}
	for rows.Next() {
		var rec model.GameRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.GameID,
			&rec.WinnerTeam,
			&rec.TeamAScore,
			&rec.TeamBScore,
			&rec.HukumSuit,
			&rec.Rounds,
			&rec.DurationSeconds,
			&rec.Players,
			&rec.CompletedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetStats 查询玩家统计，没有记录时返回零值
func (r *HistoryRepository) GetStats(ctx context.Context, userID int64) (*model.UserStats, error) {
	query := `SELECT user_id, games_played, games_won, updated_at FROM user_stats WHERE user_id = $1`

	stats := model.UserStats{UserID: userID}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.UserID,
		&stats.GamesPlayed,
		&stats.GamesWon,
		&stats.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
