package store

import (
	"context"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StatsArchive copies end-of-game stats snapshots into Postgres for reporting.
type StatsArchive struct {
	db *pgxpool.Pool
}

func NewStatsArchive(db *pgxpool.Pool) *StatsArchive {
	return &StatsArchive{db: db}
}

func (a *StatsArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_stats (
			id                     TEXT PRIMARY KEY,
			game_id                TEXT NOT NULL,
			total_messages         INTEGER NOT NULL DEFAULT 0,
			total_votes            INTEGER NOT NULL DEFAULT 0,
			average_guess_accuracy NUMERIC(7,4) NOT NULL DEFAULT 0,
			most_active_player     TEXT NOT NULL DEFAULT '',
			game_ended_at          TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create game_stats table: %w", err)
	}
	return nil
}

func (a *StatsArchive) Archive(ctx context.Context, stats *models.GameStats) error {
	accuracy := decimal.NewFromFloat(stats.AverageGuessAccuracy).Round(4)

	_, err := a.db.Exec(ctx, `
		INSERT INTO game_stats (id, game_id, total_messages, total_votes, average_guess_accuracy, most_active_player, game_ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, stats.ID, stats.GameID, stats.TotalMessages, stats.TotalVotes, accuracy, stats.MostActivePlayer, stats.GameEndedAt)
	if err != nil {
		return fmt.Errorf("failed to archive game stats: %w", err)
	}

	return nil
}

// AverageAccuracy is the mean recorded guess accuracy across archived games.
func (a *StatsArchive) AverageAccuracy(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.Decimal

	err := a.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(average_guess_accuracy), 0)
		FROM game_stats
	`).Scan(&avg)
	if err != nil {
		return decimal.Zero, err
	}

	return avg.Round(4), nil
}
