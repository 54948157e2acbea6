package service

import (
	"context"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// UpdateGameStats stores a new end-of-game snapshot. Fields left unset in
// partial stay zero; id, gameId and gameEndedAt are always filled in here.
func (g *Gateway) UpdateGameStats(ctx context.Context, gameID string, partial models.GameStats) (*models.GameStats, error) {
	if partial.TotalMessages < 0 || partial.TotalVotes < 0 {
		return nil, fmt.Errorf("stats counters cannot be negative: %w", ErrInvalidInput)
	}

	stats := partial
	stats.ID = g.ids.NewUUID()
	stats.GameID = gameID
	stats.GameEndedAt = g.clock.Now()

	if err := g.store.InsertStats(ctx, &stats); err != nil {
		return nil, err
	}

	if g.archive != nil {
		if err := g.archive.Archive(ctx, &stats); err != nil {
			log.WithFields(log.Fields{"game_id": gameID, "stats_id": stats.ID}).Warnf("archive stats: %s", err)
		}
	}

	return &stats, nil
}

func (g *Gateway) GetGameStats(ctx context.Context, gameID string) ([]*models.GameStats, error) {
	return g.store.ListStats(ctx, gameID)
}

// ArchivedAccuracy reports the mean guess accuracy across every archived game.
// ok is false when no archive is configured.
func (g *Gateway) ArchivedAccuracy(ctx context.Context) (avg decimal.Decimal, ok bool, err error) {
	if g.archive == nil {
		return decimal.Zero, false, nil
	}
	avg, err = g.archive.AverageAccuracy(ctx)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("failed to read archived accuracy: %w", err)
	}
	return avg, true, nil
}
