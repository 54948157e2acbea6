package service

import (
	"context"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
)

const (
	fallbackMinPlayers = 3
	fallbackMaxPlayers = 8
)

// BuildGameState projects a game and its players into the view contract
// for one player. It does no I/O.
func BuildGameState(game *models.Game, players []*models.Player, playerID string) *models.GameState {
	if players == nil {
		players = []*models.Player{}
	}

	state := &models.GameState{
		GameID:        game.ID,
		IsActive:      game.IsActive,
		IsHost:        playerID != "" && game.HostID == playerID,
		Phase:         game.Phase,
		Round:         game.Round,
		GameSettings:  models.StateSettings{GameSettings: game.Settings, MaxPlayers: game.MaxPlayers},
		Players:       players,
		CurrentPlayer: nil,
	}

	if state.GameSettings.MinPlayers <= 0 {
		state.GameSettings.MinPlayers = fallbackMinPlayers
	}
	if state.GameSettings.MaxPlayers <= 0 {
		state.GameSettings.MaxPlayers = fallbackMaxPlayers
	}

	for _, p := range players {
		if p.IsReady {
			state.ReadyCount++
		}
		if p.PlayerID == playerID {
			state.CurrentPlayer = p
		}
	}
	state.CanStart = state.ReadyCount >= state.GameSettings.MinPlayers

	return state
}

// GetGameState reads the game and its players and builds playerID's view.
func (g *Gateway) GetGameState(ctx context.Context, gameID, playerID string) (*models.GameState, error) {
	game, err := g.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	players, err := g.GetGamePlayers(ctx, gameID)
	if err != nil {
		return nil, err
	}

	return BuildGameState(game, players, playerID), nil
}
