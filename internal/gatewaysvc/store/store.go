package store

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
)

// ErrNotFound is returned when the addressed game does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a game id is already taken or a player joins
// the same game twice.
var ErrDuplicate = errors.New("already exists")

type SortOrder int

const (
	Ascending SortOrder = iota
	Descending
)

// GameUpdate is a field merge on a game document; nil fields are left alone.
type GameUpdate struct {
	Phase         *models.GamePhase
	Round         *int
	TimeRemaining *int
	IsActive      *bool
	MaxPlayers    *int
	UpdatedAt     time.Time
}

// PlayerUpdate is a field merge on the player addressed by (gameId, playerId).
type PlayerUpdate struct {
	Persona     *models.Persona
	IsReady     *bool
	IsConnected *bool
	LastSeen    *time.Time
	UpdatedAt   time.Time
}

// Store is the document-store boundary of the gateway. Every method is a
// single remote call or a single server-side atomic unit; none of them retry.
type Store interface {
	// InsertGame never overwrites; an existing id returns ErrDuplicate.
	InsertGame(ctx context.Context, game *models.Game) error
	// GetGame returns ErrNotFound when the game does not exist.
	GetGame(ctx context.Context, gameID string) (*models.Game, error)
	UpdateGame(ctx context.Context, gameID string, upd GameUpdate) error

	// InsertPlayer stores the player and increments the game's player
	// counter. Returns ErrNotFound, and writes nothing, when the game is missing.
	InsertPlayer(ctx context.Context, player *models.Player) error
	// UpdatePlayer reports false when no player matched.
	UpdatePlayer(ctx context.Context, gameID, playerID string, upd PlayerUpdate) (bool, error)
	// DeletePlayer removes the player and decrements the counter in one step.
	// It reports false, and leaves the counter alone, when no player matched.
	DeletePlayer(ctx context.Context, gameID, playerID string, at time.Time) (bool, error)
	GetPlayer(ctx context.Context, gameID, playerID string) (*models.Player, error)
	// ListPlayers returns players ordered by join time ascending.
	ListPlayers(ctx context.Context, gameID string) ([]*models.Player, error)

	InsertMessage(ctx context.Context, msg *models.Message) error
	// ListMessages returns up to limit messages in the requested timestamp order.
	ListMessages(ctx context.Context, gameID string, order SortOrder, limit int) ([]*models.Message, error)

	InsertVote(ctx context.Context, vote *models.Vote) error
	// ListVotes filters by round when round > 0.
	ListVotes(ctx context.Context, gameID string, round int) ([]*models.Vote, error)

	InsertStats(ctx context.Context, stats *models.GameStats) error
	ListStats(ctx context.Context, gameID string) ([]*models.GameStats, error)

	Close(ctx context.Context) error
}
