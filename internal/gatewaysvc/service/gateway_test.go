package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type GatewayTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	store   *store.RedisStore
	bus     *broker.LocalBus
	clock   *clockwork.FakeClock
	archive *fakeArchive
	gw      *Gateway
	ctx     context.Context
}

type fakeArchive struct {
	archived []*models.GameStats
	err      error
}

func (a *fakeArchive) Archive(ctx context.Context, stats *models.GameStats) error {
	if a.err != nil {
		return a.err
	}
	a.archived = append(a.archived, stats)
	return nil
}

func (a *fakeArchive) AverageAccuracy(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromFloat(0.5), nil
}

// failingPlayers rejects every player insert.
type failingPlayers struct {
	store.Store
}

func (failingPlayers) InsertPlayer(ctx context.Context, player *models.Player) error {
	return errors.New("write refused")
}

// queuedIDs hands out the queued ids first, then random ones.
type queuedIDs struct {
	mu    sync.Mutex
	queue []string
}

func (q *queuedIDs) NewUUID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return uuid.New().String()
	}
	id := q.queue[0]
	q.queue = q.queue[1:]
	return id
}

func (s *GatewayTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.store, err = store.NewRedisStore(&store.Config{RedisClient: s.client})
	s.Require().NoError(err)

	s.bus = broker.NewLocalBus()
	s.clock = clockwork.NewFakeClockAt(time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC))
	s.archive = &fakeArchive{}
	s.ctx = context.Background()

	s.gw, err = NewGateway(&Config{Store: s.store, Bus: s.bus, Clock: s.clock, Archive: s.archive})
	s.Require().NoError(err)
}

func (s *GatewayTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestGatewayTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayTestSuite))
}

func (s *GatewayTestSuite) tick() {
	s.clock.Advance(time.Second)
}

func (s *GatewayTestSuite) createGame() string {
	id, err := s.gw.CreateGame(s.ctx, "alice", "Alice")
	s.Require().NoError(err)
	s.tick()
	return id
}

func (s *GatewayTestSuite) TestNewGatewayValidates() {
	_, err := NewGateway(nil)
	s.ErrorIs(err, ErrNilConfig)

	_, err = NewGateway(&Config{Bus: s.bus})
	s.ErrorIs(err, ErrNilStore)

	_, err = NewGateway(&Config{Store: s.store})
	s.ErrorIs(err, ErrNilBus)
}

func (s *GatewayTestSuite) TestCreateGameAddsHostOnce() {
	id := s.createGame()
	s.Regexp(`^[0-9A-F]{8}$`, id)

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(game)
	s.Equal(1, game.CurrentPlayers)
	s.Equal("alice", game.HostID)
	s.Equal(models.PhaseWaiting, game.Phase)
	s.Equal(1, game.Round)
	s.Equal(8, game.MaxPlayers)
	s.Equal(300, game.TimeRemaining)
	s.True(game.IsActive)
	s.Equal(models.DefaultGameDefaults().Settings, game.Settings)

	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.Equal("alice", players[0].PlayerID)
	s.Equal("Alice", players[0].PlayerName)
	s.False(players[0].IsReady)
	s.True(players[0].IsConnected)
	s.Nil(players[0].Persona)
}

func (s *GatewayTestSuite) TestCreateGameRetriesTakenCode() {
	ids := &queuedIDs{queue: []string{"abcdef01-0000-4000-8000-000000000001"}}
	gw, err := NewGateway(&Config{Store: s.store, Bus: s.bus, Clock: s.clock, IDs: ids})
	s.Require().NoError(err)

	first, err := gw.CreateGame(s.ctx, "alice", "Alice")
	s.Require().NoError(err)
	s.Equal("ABCDEF01", first)
	s.tick()

	// same first eight hex digits, so the next code is ABCDEF01 again
	ids.mu.Lock()
	ids.queue = append(ids.queue, "abcdef01-2222-4000-8000-000000000002")
	ids.mu.Unlock()

	second, err := gw.CreateGame(s.ctx, "bob", "Bob")
	s.Require().NoError(err)
	s.NotEqual(first, second)

	game, err := gw.GetGame(s.ctx, first)
	s.Require().NoError(err)
	s.Require().NotNil(game)
	s.Equal("alice", game.HostID)
	s.Equal("Alice", game.HostName)

	players, err := gw.GetGamePlayers(s.ctx, first)
	s.Require().NoError(err)
	s.Equal([]string{"alice"}, playerIDs(players))
	s.Equal(len(players), game.CurrentPlayers)

	other, err := gw.GetGame(s.ctx, second)
	s.Require().NoError(err)
	s.Require().NotNil(other)
	s.Equal("bob", other.HostID)
	s.Equal(1, other.CurrentPlayers)
}

func (s *GatewayTestSuite) TestCreateGameGivesUpWhenCodesRunOut() {
	first := s.createGame()

	taken := make([]string, 0, maxCodeAttempts)
	for i := 0; i < maxCodeAttempts; i++ {
		taken = append(taken, strings.ToLower(first)+"-0000-4000-8000-000000000000")
	}
	gw, err := NewGateway(&Config{Store: s.store, Bus: s.bus, Clock: s.clock, IDs: &queuedIDs{queue: taken}})
	s.Require().NoError(err)

	_, err = gw.CreateGame(s.ctx, "bob", "Bob")
	s.ErrorIs(err, ErrNoGameCode)

	game, err := s.gw.GetGame(s.ctx, first)
	s.Require().NoError(err)
	s.Equal("alice", game.HostID)
	s.Equal(1, game.CurrentPlayers)
}

func (s *GatewayTestSuite) TestCreateGameRejectsBlankHost() {
	_, err := s.gw.CreateGame(s.ctx, "alice", "  ")
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *GatewayTestSuite) TestCreateGameDeactivatesWhenHostInsertFails() {
	gw, err := NewGateway(&Config{Store: failingPlayers{s.store}, Bus: s.bus, Clock: s.clock})
	s.Require().NoError(err)

	_, err = gw.CreateGame(s.ctx, "alice", "Alice")
	s.Require().Error(err)

	keys := s.mr.Keys()
	s.Require().Len(keys, 1)
	game, err := s.store.GetGame(s.ctx, keys[0][len("game:"):])
	s.Require().NoError(err)
	s.False(game.IsActive)
	s.Equal(0, game.CurrentPlayers)
}

func (s *GatewayTestSuite) TestCustomDefaults() {
	d := models.DefaultGameDefaults()
	d.MaxPlayers = 4
	gw, err := NewGateway(&Config{Store: s.store, Bus: s.bus, Clock: s.clock, Defaults: &d})
	s.Require().NoError(err)

	id, err := gw.CreateGame(s.ctx, "alice", "Alice")
	s.Require().NoError(err)

	game, err := gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(4, game.MaxPlayers)
}

func (s *GatewayTestSuite) TestGetGameMissingIsNil() {
	game, err := s.gw.GetGame(s.ctx, "NOPE")
	s.NoError(err)
	s.Nil(game)
}

func (s *GatewayTestSuite) TestUpdateGamePhase() {
	id := s.createGame()

	round := 2
	remaining := 120
	err := s.gw.UpdateGamePhase(s.ctx, id, models.PhaseActive, &PhaseExtra{Round: &round, TimeRemaining: &remaining})
	s.Require().NoError(err)

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.PhaseActive, game.Phase)
	s.Equal(2, game.Round)
	s.Equal(120, game.TimeRemaining)
	s.True(s.clock.Now().Equal(game.UpdatedAt))
}

func (s *GatewayTestSuite) TestUpdateGamePhaseRejects() {
	id := s.createGame()

	s.ErrorIs(s.gw.UpdateGamePhase(s.ctx, id, models.GamePhase("voting"), nil), ErrInvalidPhase)
	s.ErrorIs(s.gw.UpdateGamePhase(s.ctx, "NOPE", models.PhaseEnded, nil), ErrGameNotFound)
}

func (s *GatewayTestSuite) TestUpdateGameTimer() {
	id := s.createGame()

	s.Require().NoError(s.gw.UpdateGameTimer(s.ctx, id, 42))
	s.ErrorIs(s.gw.UpdateGameTimer(s.ctx, id, -1), ErrInvalidInput)

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(42, game.TimeRemaining)
}

func (s *GatewayTestSuite) TestCleanupGameKeepsChildren() {
	id := s.createGame()
	s.Require().NoError(s.gw.SendMessage(s.ctx, id, "alice", "Alice", "bye"))

	s.Require().NoError(s.gw.CleanupGame(s.ctx, id))

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	s.False(game.IsActive)

	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)
	s.Len(players, 1)

	messages, err := s.gw.GetGameMessages(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Len(messages, 1)
}

func (s *GatewayTestSuite) TestJoinGame() {
	id := s.createGame()

	game, err := s.gw.JoinGame(s.ctx, " "+strings.ToLower(id)+" ", "bob", "Bob")
	s.Require().NoError(err)
	s.Equal(2, game.CurrentPlayers)

	_, err = s.gw.JoinGame(s.ctx, id, "bob", "Bob")
	s.ErrorIs(err, ErrPlayerAlreadyInGame)

	_, err = s.gw.JoinGame(s.ctx, "ZZZZZZZZ", "carol", "Carol")
	s.ErrorIs(err, ErrGameNotFound)

	_, err = s.gw.JoinGame(s.ctx, id, "carol", "")
	s.ErrorIs(err, ErrInvalidInput)
}

func (s *GatewayTestSuite) TestJoinGameLowercaseCode() {
	id := s.createGame()

	_, err := s.gw.JoinGame(s.ctx, strings.ToLower(id), "bob", "Bob")
	s.Require().NoError(err)
}

func (s *GatewayTestSuite) TestJoinGameInactiveAndFull() {
	id := s.createGame()
	max := 2
	s.Require().NoError(s.gw.UpdateGamePhase(s.ctx, id, models.PhaseWaiting, &PhaseExtra{MaxPlayers: &max}))

	_, err := s.gw.JoinGame(s.ctx, id, "bob", "Bob")
	s.Require().NoError(err)
	_, err = s.gw.JoinGame(s.ctx, id, "carol", "Carol")
	s.ErrorIs(err, ErrGameFull)

	s.Require().NoError(s.gw.CleanupGame(s.ctx, id))
	_, err = s.gw.JoinGame(s.ctx, id, "dave", "Dave")
	s.ErrorIs(err, ErrGameInactive)
}

func (s *GatewayTestSuite) TestAddPlayerToMissingGame() {
	s.ErrorIs(s.gw.AddPlayerToGame(s.ctx, "NOPE", "bob", "Bob"), ErrGameNotFound)
}

func (s *GatewayTestSuite) TestRequireHost() {
	id := s.createGame()

	_, err := s.gw.RequireHost(s.ctx, id, "alice")
	s.NoError(err)
	_, err = s.gw.RequireHost(s.ctx, id, "bob")
	s.ErrorIs(err, ErrNotHost)
	_, err = s.gw.RequireHost(s.ctx, "NOPE", "alice")
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *GatewayTestSuite) TestRequirePlayer() {
	id := s.createGame()

	player, err := s.gw.RequirePlayer(s.ctx, id, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", player.PlayerName)

	_, err = s.gw.RequirePlayer(s.ctx, id, "bob")
	s.ErrorIs(err, ErrNotInGame)
	_, err = s.gw.RequirePlayer(s.ctx, "NOPE", "alice")
	s.ErrorIs(err, ErrNotInGame)
}

func (s *GatewayTestSuite) TestPersonaMarksReady() {
	id := s.createGame()
	persona := models.Persona{Name: "Camille", Profession: "baker", Age: 34, Trait: "curious", Hobbies: []string{"chess", "running"}}

	s.Require().NoError(s.gw.UpdatePlayerPersona(s.ctx, id, "alice", persona))

	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(players, 1)
	s.True(players[0].IsReady)
	s.Require().NotNil(players[0].Persona)
	s.Equal(persona, *players[0].Persona)
}

func (s *GatewayTestSuite) TestPersonaForMissingPlayerIsNoop() {
	id := s.createGame()
	s.NoError(s.gw.UpdatePlayerPersona(s.ctx, id, "ghost", models.Persona{Name: "X"}))
	s.ErrorIs(s.gw.UpdatePlayerPersona(s.ctx, id, "alice", models.Persona{}), ErrInvalidInput)
}

func (s *GatewayTestSuite) TestUpdatePlayerConnection() {
	id := s.createGame()

	s.Require().NoError(s.gw.UpdatePlayerConnection(s.ctx, id, "alice", false))

	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)
	s.False(players[0].IsConnected)
	s.True(s.clock.Now().Equal(players[0].LastSeen))
}

func (s *GatewayTestSuite) TestCounterTracksAddAndRemove() {
	id := s.createGame()

	for _, p := range []string{"bob", "carol", "dave"} {
		s.Require().NoError(s.gw.AddPlayerToGame(s.ctx, id, p, p))
		s.tick()
	}
	s.Require().NoError(s.gw.RemovePlayerFromGame(s.ctx, id, "carol"))
	s.Require().NoError(s.gw.RemovePlayerFromGame(s.ctx, id, "carol"))
	s.Require().NoError(s.gw.RemovePlayerFromGame(s.ctx, id, "nobody"))

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)

	s.Equal(len(players), game.CurrentPlayers)
	s.Equal(3, game.CurrentPlayers)
	s.Equal([]string{"alice", "bob", "dave"}, playerIDs(players))
}

func (s *GatewayTestSuite) TestConcurrentJoinsAndLeavesKeepCounterExact() {
	id := s.createGame()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := fmt.Sprintf("p%02d", i)
			s.NoError(s.gw.AddPlayerToGame(s.ctx, id, p, p))
			if i%2 == 0 {
				s.NoError(s.gw.RemovePlayerFromGame(s.ctx, id, p))
			}
		}(i)
	}
	// Half of these race the joins above and may find nothing to delete.
	for i := 1; i < 40; i += 4 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.NoError(s.gw.RemovePlayerFromGame(s.ctx, id, fmt.Sprintf("p%02d", i)))
		}(i)
	}
	wg.Wait()

	game, err := s.gw.GetGame(s.ctx, id)
	s.Require().NoError(err)
	players, err := s.gw.GetGamePlayers(s.ctx, id)
	s.Require().NoError(err)

	s.Equal(len(players), game.CurrentPlayers)
	s.Contains(playerIDs(players), "alice")
}

func (s *GatewayTestSuite) TestMessagesNewestInChronologicalOrder() {
	id := s.createGame()
	for i := 0; i < 60; i++ {
		s.Require().NoError(s.gw.SendMessage(s.ctx, id, "alice", "Alice", fmt.Sprintf("msg %d", i)))
		s.tick()
	}

	messages, err := s.gw.GetGameMessages(s.ctx, id, 50)
	s.Require().NoError(err)
	s.Require().Len(messages, 50)
	s.Equal("msg 10", messages[0].Message)
	s.Equal("msg 59", messages[49].Message)
	for i := 1; i < len(messages); i++ {
		s.False(messages[i].Timestamp.Before(messages[i-1].Timestamp))
	}

	defaulted, err := s.gw.GetGameMessages(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Len(defaulted, 50)

	few, err := s.gw.GetGameMessages(s.ctx, id, 3)
	s.Require().NoError(err)
	s.Require().Len(few, 3)
	s.Equal("msg 57", few[0].Message)
}

func (s *GatewayTestSuite) TestSystemMessage() {
	id := s.createGame()
	s.Require().NoError(s.gw.SendSystemMessage(s.ctx, id, "La partie commence"))
	s.ErrorIs(s.gw.SendMessage(s.ctx, id, "alice", "Alice", "   "), ErrInvalidInput)

	messages, err := s.gw.GetGameMessages(s.ctx, id, 10)
	s.Require().NoError(err)
	s.Require().Len(messages, 1)
	s.Equal(models.SystemSenderID, messages[0].PlayerID)
	s.Equal(models.SystemSenderName, messages[0].PlayerName)
	s.True(messages[0].IsSystemMessage)
}

func (s *GatewayTestSuite) TestVotesAlwaysRoundOne() {
	id := s.createGame()
	round := 3
	s.Require().NoError(s.gw.UpdateGamePhase(s.ctx, id, models.PhaseActive, &PhaseExtra{Round: &round}))

	s.Require().NoError(s.gw.SubmitVote(s.ctx, id, "alice", "bob", "baker"))
	s.Require().NoError(s.gw.SubmitVote(s.ctx, id, "bob", "alice", "pilot"))

	votes, err := s.gw.GetGameVotes(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Require().Len(votes, 2)
	for _, v := range votes {
		s.Equal(1, v.Round)
	}

	third, err := s.gw.GetGameVotes(s.ctx, id, 3)
	s.Require().NoError(err)
	s.Empty(third)

	s.ErrorIs(s.gw.SubmitVote(s.ctx, id, "alice", "", "baker"), ErrInvalidInput)
}

func (s *GatewayTestSuite) TestUpdateGameStats() {
	id := s.createGame()

	stats, err := s.gw.UpdateGameStats(s.ctx, id, models.GameStats{TotalMessages: 12, MostActivePlayer: "alice"})
	s.Require().NoError(err)
	s.Equal(id, stats.GameID)
	s.NotEmpty(stats.ID)
	s.Equal(0, stats.TotalVotes)
	s.True(s.clock.Now().Equal(stats.GameEndedAt))

	stored, err := s.gw.GetGameStats(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(stored, 1)
	s.Equal(12, stored[0].TotalMessages)
	s.Require().Len(s.archive.archived, 1)

	avg, ok, err := s.gw.ArchivedAccuracy(s.ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("0.5", avg.String())
}

func (s *GatewayTestSuite) TestArchiveFailureDoesNotFailStats() {
	id := s.createGame()
	s.archive.err = errors.New("archive down")

	_, err := s.gw.UpdateGameStats(s.ctx, id, models.GameStats{TotalVotes: 2})
	s.Require().NoError(err)

	stored, err := s.gw.GetGameStats(s.ctx, id)
	s.Require().NoError(err)
	s.Len(stored, 1)
}

func (s *GatewayTestSuite) TestArchivedAccuracyWithoutArchive() {
	gw, err := NewGateway(&Config{Store: s.store, Bus: s.bus})
	s.Require().NoError(err)

	_, ok, err := gw.ArchivedAccuracy(s.ctx)
	s.NoError(err)
	s.False(ok)
}

func playerIDs(players []*models.Player) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.PlayerID)
	}
	return ids
}
