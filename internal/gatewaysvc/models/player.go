package models

import "time"

// Persona is the fabricated identity a player assumes for the match.
type Persona struct {
	Name       string   `json:"name" bson:"name"`
	Profession string   `json:"profession" bson:"profession"`
	Age        int      `json:"age" bson:"age"`
	Trait      string   `json:"trait" bson:"trait"`
	Hobbies    []string `json:"hobbies,omitempty" bson:"hobbies,omitempty"`
}

type Player struct {
	ID          string    `json:"id" bson:"_id"`            // record id
	GameID      string    `json:"gameId" bson:"gameId"`     // FK to games(_id)
	PlayerID    string    `json:"playerId" bson:"playerId"` // identity of the user
	PlayerName  string    `json:"playerName" bson:"playerName"`
	IsReady     bool      `json:"isReady" bson:"isReady"`
	IsConnected bool      `json:"isConnected" bson:"isConnected"`
	Score       int       `json:"score" bson:"score"`
	Persona     *Persona  `json:"persona" bson:"persona"`
	JoinedAt    time.Time `json:"joinedAt" bson:"joinedAt"`
	LastSeen    time.Time `json:"lastSeen" bson:"lastSeen"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}
