package models

// StateSettings is what the waiting room reads; it carries the game capacity
// next to the round settings.
type StateSettings struct {
	GameSettings
	MaxPlayers int `json:"maxPlayers"`
}

// GameState is the read-only projection the view layer renders from.
type GameState struct {
	GameID        string        `json:"gameId"`
	IsActive      bool          `json:"isActive"`
	IsHost        bool          `json:"isHost"`
	Phase         GamePhase     `json:"phase"`
	Round         int           `json:"round"`
	GameSettings  StateSettings `json:"gameSettings"`
	Players       []*Player     `json:"players"`
	CurrentPlayer *Player       `json:"currentPlayer"`
	ReadyCount    int           `json:"readyCount"`
	CanStart      bool          `json:"canStart"`
}
