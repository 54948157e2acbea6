package models

import "time"

const (
	SystemSenderID   = "system"
	SystemSenderName = "Système"
)

type Message struct {
	ID              string    `json:"id" bson:"_id"`
	GameID          string    `json:"gameId" bson:"gameId"`
	PlayerID        string    `json:"playerId" bson:"playerId"`
	PlayerName      string    `json:"playerName" bson:"playerName"`
	Message         string    `json:"message" bson:"message"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	IsSystemMessage bool      `json:"isSystemMessage" bson:"isSystemMessage"`
}

type Vote struct {
	ID        string    `json:"id" bson:"_id"`
	GameID    string    `json:"gameId" bson:"gameId"`
	VoterID   string    `json:"voterId" bson:"voterId"`
	TargetID  string    `json:"targetId" bson:"targetId"`
	Guess     string    `json:"guess" bson:"guess"` // guessed persona value
	Round     int       `json:"round" bson:"round"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// GameStats is an end-of-game snapshot; it is never updated after insert.
type GameStats struct {
	ID                   string    `json:"id" bson:"_id"`
	GameID               string    `json:"gameId" bson:"gameId"`
	TotalMessages        int       `json:"totalMessages" bson:"totalMessages"`
	TotalVotes           int       `json:"totalVotes" bson:"totalVotes"`
	AverageGuessAccuracy float64   `json:"averageGuessAccuracy" bson:"averageGuessAccuracy"`
	MostActivePlayer     string    `json:"mostActivePlayer" bson:"mostActivePlayer"`
	GameEndedAt          time.Time `json:"gameEndedAt" bson:"gameEndedAt"`
}
