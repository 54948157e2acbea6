package service

import (
	"context"
	"time"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
)

const waitTimeout = 2 * time.Second

// await reads snapshots until match accepts one. Intermediate snapshots may
// be skipped by coalescing, so only the eventual state is asserted.
func await[T any](s *GatewayTestSuite, sub *Subscription[T], match func(T) bool) T {
	deadline := time.After(waitTimeout)
	for {
		select {
		case v, ok := <-sub.C:
			s.Require().True(ok, "subscription closed early")
			if match(v) {
				return v
			}
		case <-deadline:
			s.FailNow("timed out waiting for snapshot")
		}
	}
}

func (s *GatewayTestSuite) TestOnPlayersUpdateJoinOrder() {
	id := s.createGame()

	sub, err := s.gw.OnPlayersUpdate(s.ctx, id)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	first := await(s, sub, func(p []*models.Player) bool { return true })
	s.Equal([]string{"alice"}, playerIDs(first))

	s.Require().NoError(s.gw.AddPlayerToGame(s.ctx, id, "bob", "Bob"))
	s.tick()
	s.Require().NoError(s.gw.AddPlayerToGame(s.ctx, id, "carol", "Carol"))

	joined := await(s, sub, func(p []*models.Player) bool { return len(p) == 3 })
	s.Equal([]string{"alice", "bob", "carol"}, playerIDs(joined))

	s.Require().NoError(s.gw.RemovePlayerFromGame(s.ctx, id, "bob"))
	left := await(s, sub, func(p []*models.Player) bool { return len(p) == 2 })
	s.Equal([]string{"alice", "carol"}, playerIDs(left))
}

func (s *GatewayTestSuite) TestOnGameUpdate() {
	id := s.createGame()

	sub, err := s.gw.OnGameUpdate(s.ctx, id)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	initial := await(s, sub, func(g *models.Game) bool { return true })
	s.Equal(models.PhaseWaiting, initial.Phase)

	s.Require().NoError(s.gw.UpdateGamePhase(s.ctx, id, models.PhaseActive, nil))
	active := await(s, sub, func(g *models.Game) bool { return g.Phase == models.PhaseActive })
	s.Equal(id, active.ID)
}

func (s *GatewayTestSuite) TestOnGameUpdateWaitsForGame() {
	sub, err := s.gw.OnGameUpdate(s.ctx, "NOPE")
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	select {
	case g := <-sub.C:
		s.Failf("unexpected snapshot", "%+v", g)
	case <-time.After(100 * time.Millisecond):
	}
}

func (s *GatewayTestSuite) TestOnMessagesUpdate() {
	id := s.createGame()

	sub, err := s.gw.OnMessagesUpdate(s.ctx, id)
	s.Require().NoError(err)
	defer sub.Unsubscribe()

	empty := await(s, sub, func(m []*models.Message) bool { return true })
	s.Empty(empty)

	s.Require().NoError(s.gw.SendMessage(s.ctx, id, "alice", "Alice", "first"))
	s.tick()
	s.Require().NoError(s.gw.SendMessage(s.ctx, id, "alice", "Alice", "second"))

	got := await(s, sub, func(m []*models.Message) bool { return len(m) == 2 })
	s.Equal("first", got[0].Message)
	s.Equal("second", got[1].Message)
}

func (s *GatewayTestSuite) TestUnsubscribeClosesChannel() {
	id := s.createGame()

	sub, err := s.gw.OnPlayersUpdate(s.ctx, id)
	s.Require().NoError(err)

	sub.Unsubscribe()
	sub.Unsubscribe()

	// drain a snapshot that may have been buffered before the close
	for range sub.C {
	}
	s.Zero(s.bus.Subscribers())
}

func (s *GatewayTestSuite) TestContextCancelEndsSubscription() {
	id := s.createGame()
	ctx, cancel := context.WithCancel(s.ctx)

	sub, err := s.gw.OnMessagesUpdate(ctx, id)
	s.Require().NoError(err)
	cancel()

	closed := make(chan struct{})
	go func() {
		for range sub.C {
		}
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(waitTimeout):
		s.FailNow("subscription still open after cancel")
	}
}
