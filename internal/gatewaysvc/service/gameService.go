package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
	log "github.com/sirupsen/logrus"
)

// PhaseExtra carries optional fields merged together with a phase change.
type PhaseExtra struct {
	Round         *int
	TimeRemaining *int
	IsActive      *bool
	MaxPlayers    *int
}

// CreateGame inserts a waiting game and then adds the host as its first
// player. The two writes are not atomic: if the host cannot be added the game
// is flagged inactive so it never shows up as an empty open lobby.
func (g *Gateway) CreateGame(ctx context.Context, hostID, hostName string) (string, error) {
	hostID = strings.TrimSpace(hostID)
	hostName = strings.TrimSpace(hostName)
	if hostID == "" || hostName == "" {
		return "", fmt.Errorf("host id and name are required: %w", ErrInvalidInput)
	}

	now := g.clock.Now()
	game := &models.Game{
		HostID:         hostID,
		HostName:       hostName,
		Phase:          models.PhaseWaiting,
		Round:          1,
		MaxPlayers:     g.defaults.MaxPlayers,
		CurrentPlayers: 0,
		TimeRemaining:  g.defaults.TimeRemaining,
		IsActive:       true,
		Settings:       g.defaults.Settings,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := g.insertWithFreshCode(ctx, game); err != nil {
		return "", err
	}
	g.notify(ctx, game.ID, broker.KindGame)

	if err := g.AddPlayerToGame(ctx, game.ID, hostID, hostName); err != nil {
		inactive := false
		cerr := g.store.UpdateGame(ctx, game.ID, store.GameUpdate{IsActive: &inactive, UpdatedAt: g.clock.Now()})
		if cerr != nil {
			log.Errorf("game %s left open without a host: %s", game.ID, cerr)
		}
		return "", fmt.Errorf("failed to add host to game %s: %w", game.ID, err)
	}

	log.Infof("game %s created by %s", game.ID, hostID)
	return game.ID, nil
}

// insertWithFreshCode draws join codes until one is free.
func (g *Gateway) insertWithFreshCode(ctx context.Context, game *models.Game) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		game.ID = g.newGameCode()
		err := g.store.InsertGame(ctx, game)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return err
		}
		log.Warnf("game code %s already taken, drawing another", game.ID)
	}
	return ErrNoGameCode
}

// GetGame returns nil, nil when the game does not exist.
func (g *Gateway) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := g.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return game, nil
}

func (g *Gateway) UpdateGamePhase(ctx context.Context, gameID string, phase models.GamePhase, extra *PhaseExtra) error {
	if !phase.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPhase, phase)
	}

	upd := store.GameUpdate{Phase: &phase, UpdatedAt: g.clock.Now()}
	if extra != nil {
		upd.Round = extra.Round
		upd.TimeRemaining = extra.TimeRemaining
		upd.IsActive = extra.IsActive
		upd.MaxPlayers = extra.MaxPlayers
	}

	return g.updateGame(ctx, gameID, upd)
}

func (g *Gateway) UpdateGameTimer(ctx context.Context, gameID string, remaining int) error {
	if remaining < 0 {
		return fmt.Errorf("time remaining cannot be negative: %w", ErrInvalidInput)
	}
	return g.updateGame(ctx, gameID, store.GameUpdate{TimeRemaining: &remaining, UpdatedAt: g.clock.Now()})
}

// CleanupGame archives a game by flag. Players, messages and votes are kept.
func (g *Gateway) CleanupGame(ctx context.Context, gameID string) error {
	inactive := false
	return g.updateGame(ctx, gameID, store.GameUpdate{IsActive: &inactive, UpdatedAt: g.clock.Now()})
}

func (g *Gateway) updateGame(ctx context.Context, gameID string, upd store.GameUpdate) error {
	if err := g.store.UpdateGame(ctx, gameID, upd); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrGameNotFound
		}
		return err
	}
	g.notify(ctx, gameID, broker.KindGame)
	return nil
}

// JoinGame is the home-screen join flow. The capacity check reads the
// counter before the insert, so two racing joins can both pass it.
func (g *Gateway) JoinGame(ctx context.Context, gameID, playerID, playerName string) (*models.Game, error) {
	gameID = NormalizeGameCode(gameID)
	playerName = strings.TrimSpace(playerName)
	if gameID == "" || playerID == "" || playerName == "" {
		return nil, fmt.Errorf("game code, player id and name are required: %w", ErrInvalidInput)
	}

	game, err := g.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if !game.IsActive {
		return nil, ErrGameInactive
	}
	if game.MaxPlayers > 0 && game.CurrentPlayers >= game.MaxPlayers {
		return nil, ErrGameFull
	}

	if err := g.AddPlayerToGame(ctx, gameID, playerID, playerName); err != nil {
		return nil, err
	}

	return g.GetGame(ctx, gameID)
}

// RequireHost returns the game when playerID is its host.
func (g *Gateway) RequireHost(ctx context.Context, gameID, playerID string) (*models.Game, error) {
	game, err := g.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	if game.HostID != playerID {
		return nil, ErrNotHost
	}
	return game, nil
}
