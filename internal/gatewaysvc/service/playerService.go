package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
)

// AddPlayerToGame inserts a player that is not ready, connected, with no
// persona, and bumps the game's player counter in the same store call.
func (g *Gateway) AddPlayerToGame(ctx context.Context, gameID, playerID, playerName string) error {
	now := g.clock.Now()
	player := &models.Player{
		ID:          g.ids.NewUUID(),
		GameID:      gameID,
		PlayerID:    playerID,
		PlayerName:  playerName,
		IsReady:     false,
		IsConnected: true,
		Score:       0,
		Persona:     nil,
		JoinedAt:    now,
		LastSeen:    now,
		UpdatedAt:   now,
	}

	if err := g.store.InsertPlayer(ctx, player); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrGameNotFound
		case errors.Is(err, store.ErrDuplicate):
			return ErrPlayerAlreadyInGame
		}
		return err
	}

	g.notify(ctx, gameID, broker.KindPlayers, broker.KindGame)
	return nil
}

// UpdatePlayerPersona attaches the persona and marks the player ready. It is
// a no-op when the player is not in the game.
func (g *Gateway) UpdatePlayerPersona(ctx context.Context, gameID, playerID string, persona models.Persona) error {
	if persona.Name == "" {
		return fmt.Errorf("persona name is required: %w", ErrInvalidInput)
	}

	ready := true
	return g.updatePlayer(ctx, gameID, playerID, store.PlayerUpdate{
		Persona:   &persona,
		IsReady:   &ready,
		UpdatedAt: g.clock.Now(),
	})
}

func (g *Gateway) UpdatePlayerConnection(ctx context.Context, gameID, playerID string, connected bool) error {
	now := g.clock.Now()
	return g.updatePlayer(ctx, gameID, playerID, store.PlayerUpdate{
		IsConnected: &connected,
		LastSeen:    &now,
		UpdatedAt:   now,
	})
}

func (g *Gateway) updatePlayer(ctx context.Context, gameID, playerID string, upd store.PlayerUpdate) error {
	ok, err := g.store.UpdatePlayer(ctx, gameID, playerID, upd)
	if err != nil {
		return err
	}
	if ok {
		g.notify(ctx, gameID, broker.KindPlayers)
	}
	return nil
}

// GetGamePlayers returns the game's players ordered by join time.
func (g *Gateway) GetGamePlayers(ctx context.Context, gameID string) ([]*models.Player, error) {
	return g.store.ListPlayers(ctx, gameID)
}

// RequirePlayer returns playerID's record in the game.
func (g *Gateway) RequirePlayer(ctx context.Context, gameID, playerID string) (*models.Player, error) {
	player, err := g.store.GetPlayer(ctx, gameID, playerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotInGame
		}
		return nil, err
	}
	return player, nil
}

// RemovePlayerFromGame deletes the player and decrements the counter. The
// counter is only touched when a player record was actually removed.
func (g *Gateway) RemovePlayerFromGame(ctx context.Context, gameID, playerID string) error {
	ok, err := g.store.DeletePlayer(ctx, gameID, playerID, g.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		g.notify(ctx, gameID, broker.KindPlayers, broker.KindGame)
	}
	return nil
}
