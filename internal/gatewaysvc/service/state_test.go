package service

import (
	"testing"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stateGame() *models.Game {
	d := models.DefaultGameDefaults()
	return &models.Game{
		ID:         "ABCD1234",
		HostID:     "alice",
		Phase:      models.PhaseWaiting,
		Round:      1,
		MaxPlayers: d.MaxPlayers,
		IsActive:   true,
		Settings:   d.Settings,
	}
}

func TestBuildGameStateCountsReady(t *testing.T) {
	players := []*models.Player{
		{PlayerID: "alice", IsReady: true},
		{PlayerID: "bob", IsReady: true},
		{PlayerID: "carol"},
	}

	state := BuildGameState(stateGame(), players, "bob")
	assert.Equal(t, "ABCD1234", state.GameID)
	assert.False(t, state.IsHost)
	assert.Equal(t, 2, state.ReadyCount)
	assert.False(t, state.CanStart)
	require.NotNil(t, state.CurrentPlayer)
	assert.Equal(t, "bob", state.CurrentPlayer.PlayerID)
	assert.Equal(t, 8, state.GameSettings.MaxPlayers)
	assert.Equal(t, 3, state.GameSettings.MinPlayers)

	players[2].IsReady = true
	state = BuildGameState(stateGame(), players, "alice")
	assert.True(t, state.IsHost)
	assert.True(t, state.CanStart)
}

func TestBuildGameStateFallbacks(t *testing.T) {
	game := stateGame()
	game.MaxPlayers = 0
	game.Settings.MinPlayers = 0

	state := BuildGameState(game, nil, "stranger")
	assert.Equal(t, 3, state.GameSettings.MinPlayers)
	assert.Equal(t, 8, state.GameSettings.MaxPlayers)
	assert.NotNil(t, state.Players)
	assert.Nil(t, state.CurrentPlayer)
	assert.False(t, state.CanStart)
}

func (s *GatewayTestSuite) TestGetGameState() {
	id := s.createGame()
	s.Require().NoError(s.gw.AddPlayerToGame(s.ctx, id, "bob", "Bob"))
	s.Require().NoError(s.gw.UpdatePlayerPersona(s.ctx, id, "bob", models.Persona{Name: "Jules"}))

	state, err := s.gw.GetGameState(s.ctx, id, "alice")
	s.Require().NoError(err)
	s.True(state.IsHost)
	s.Len(state.Players, 2)
	s.Equal(1, state.ReadyCount)
	s.Equal("alice", state.CurrentPlayer.PlayerID)

	_, err = s.gw.GetGameState(s.ctx, "NOPE", "alice")
	s.ErrorIs(err, ErrGameNotFound)
}
