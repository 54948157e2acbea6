package models

import "time"

type GamePhase string

const (
	PhaseWaiting GamePhase = "waiting"
	PhaseActive  GamePhase = "active"
	PhaseEnded   GamePhase = "ended"
)

func (p GamePhase) Valid() bool {
	switch p {
	case PhaseWaiting, PhaseActive, PhaseEnded:
		return true
	}
	return false
}

type GameSettings struct {
	RoundDuration  int `json:"roundDuration" bson:"roundDuration"`   // seconds
	VotingDuration int `json:"votingDuration" bson:"votingDuration"` // seconds
	MinPlayers     int `json:"minPlayers" bson:"minPlayers"`
	MaxRounds      int `json:"maxRounds" bson:"maxRounds"`
}

// Game is the lobby/match record. CurrentPlayers is only ever moved by an
// atomic increment or decrement in the store.
type Game struct {
	ID             string       `json:"id" bson:"_id"`
	HostID         string       `json:"hostId" bson:"hostId"`
	HostName       string       `json:"hostName" bson:"hostName"`
	Phase          GamePhase    `json:"phase" bson:"phase"`
	Round          int          `json:"round" bson:"round"`
	MaxPlayers     int          `json:"maxPlayers" bson:"maxPlayers"`
	CurrentPlayers int          `json:"currentPlayers" bson:"currentPlayers"`
	TimeRemaining  int          `json:"timeRemaining" bson:"timeRemaining"` // seconds
	IsActive       bool         `json:"isActive" bson:"isActive"`
	Settings       GameSettings `json:"settings" bson:"settings"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// GameDefaults are applied to every new game.
type GameDefaults struct {
	MaxPlayers    int
	TimeRemaining int
	Settings      GameSettings
}

func DefaultGameDefaults() GameDefaults {
	return GameDefaults{
		MaxPlayers:    8,
		TimeRemaining: 300,
		Settings: GameSettings{
			RoundDuration:  300,
			VotingDuration: 120,
			MinPlayers:     3,
			MaxRounds:      5,
		},
	}
}
