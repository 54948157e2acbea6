package service

import (
	"context"
	"strings"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMessageLimit = 50
	liveMessageLimit    = 100
	maxCodeAttempts     = 5

	// TODO: thread the game's current round into SubmitVote; every vote is
	// recorded against round 1 until then.
	voteRound = 1
)

// IDGenerator mints record ids.
type IDGenerator interface {
	NewUUID() string
}

type defaultIDs struct{}

func (defaultIDs) NewUUID() string {
	return uuid.New().String()
}

// StatsArchiver receives a copy of every stats snapshot.
type StatsArchiver interface {
	Archive(ctx context.Context, stats *models.GameStats) error
	AverageAccuracy(ctx context.Context) (decimal.Decimal, error)
}

type Config struct {
	Store    store.Store
	Bus      broker.Bus
	Clock    clockwork.Clock      // defaults to the real clock
	IDs      IDGenerator          // defaults to random UUIDs
	Archive  StatsArchiver        // optional
	Defaults *models.GameDefaults // defaults to models.DefaultGameDefaults
}

// Gateway is the only path from callers to shared game state. Writes go to
// the store, then a change notice goes out on the bus.
type Gateway struct {
	store    store.Store
	bus      broker.Bus
	clock    clockwork.Clock
	ids      IDGenerator
	archive  StatsArchiver
	defaults models.GameDefaults
}

func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Bus == nil {
		return nil, ErrNilBus
	}

	g := &Gateway{
		store:    cfg.Store,
		bus:      cfg.Bus,
		clock:    cfg.Clock,
		ids:      cfg.IDs,
		archive:  cfg.Archive,
		defaults: models.DefaultGameDefaults(),
	}
	if g.clock == nil {
		g.clock = clockwork.NewRealClock()
	}
	if g.ids == nil {
		g.ids = defaultIDs{}
	}
	if cfg.Defaults != nil {
		g.defaults = *cfg.Defaults
	}

	return g, nil
}

// newGameCode returns a short upper-case join code.
func (g *Gateway) newGameCode() string {
	return strings.ToUpper(strings.ReplaceAll(g.ids.NewUUID(), "-", "")[:8])
}

// NormalizeGameCode trims and upper-cases a code typed by a player.
func NormalizeGameCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// notify publishes change notices. A failed publish never fails the write
// that caused it.
func (g *Gateway) notify(ctx context.Context, gameID string, kinds ...broker.Kind) {
	at := g.clock.Now()
	for _, kind := range kinds {
		err := g.bus.Publish(ctx, broker.Change{GameID: gameID, Kind: kind, At: at})
		if err != nil {
			log.WithFields(log.Fields{"game_id": gameID, "kind": kind}).Errorf("publish change: %s", err)
		}
	}
}
