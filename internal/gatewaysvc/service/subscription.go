package service

import (
	"context"
	"fmt"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/broker"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/store"
	log "github.com/sirupsen/logrus"
)

// Subscription streams snapshots of one view of a game. C is closed once the
// subscription ends, either by Unsubscribe or by the context passed to the
// On* call being cancelled.
type Subscription[T any] struct {
	C <-chan T

	cancel context.CancelFunc
	done   chan struct{}
}

// Unsubscribe stops the stream and waits for it to wind down. Safe to call
// more than once.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()
	<-s.done
}

// loader reads the current snapshot; ok false means there is nothing to
// deliver yet.
type loader[T any] func(ctx context.Context) (v T, ok bool, err error)

// watch delivers load's result once right away and again after every change
// of kind on gameID. Notices that arrive while a snapshot is pending collapse
// into one reload, so a slow reader sees the latest state rather than a backlog.
func watch[T any](ctx context.Context, bus broker.Bus, gameID string, kind broker.Kind, load loader[T]) (*Subscription[T], error) {
	ctx, cancel := context.WithCancel(ctx)

	signal := make(chan struct{}, 1)
	signal <- struct{}{}

	unsub, err := bus.Subscribe(gameID, kind, func(broker.Change) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s changes of game %s: %w", kind, gameID, err)
	}

	out := make(chan T, 1)
	sub := &Subscription[T]{C: out, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer unsub()

		logger := log.WithFields(log.Fields{"game_id": gameID, "kind": kind})
		for {
			select {
			case <-ctx.Done():
				return
			case <-signal:
			}

			v, ok, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warnf("load snapshot: %s", err)
				continue
			}
			if !ok {
				continue
			}

			// drop a snapshot nobody has read yet; v supersedes it
			select {
			case <-out:
			default:
			}

			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	return sub, nil
}

// OnGameUpdate streams the game record. Nothing is sent while the game does
// not exist.
func (g *Gateway) OnGameUpdate(ctx context.Context, gameID string) (*Subscription[*models.Game], error) {
	return watch(ctx, g.bus, gameID, broker.KindGame, func(ctx context.Context) (*models.Game, bool, error) {
		game, err := g.GetGame(ctx, gameID)
		if err != nil {
			return nil, false, err
		}
		return game, game != nil, nil
	})
}

// OnPlayersUpdate streams the join-ordered player list.
func (g *Gateway) OnPlayersUpdate(ctx context.Context, gameID string) (*Subscription[[]*models.Player], error) {
	return watch(ctx, g.bus, gameID, broker.KindPlayers, func(ctx context.Context) ([]*models.Player, bool, error) {
		players, err := g.store.ListPlayers(ctx, gameID)
		if err != nil {
			return nil, false, err
		}
		return players, true, nil
	})
}

// OnMessagesUpdate streams the oldest liveMessageLimit messages in
// chronological order.
func (g *Gateway) OnMessagesUpdate(ctx context.Context, gameID string) (*Subscription[[]*models.Message], error) {
	return watch(ctx, g.bus, gameID, broker.KindMessages, func(ctx context.Context) ([]*models.Message, bool, error) {
		messages, err := g.store.ListMessages(ctx, gameID, store.Ascending, liveMessageLimit)
		if err != nil {
			return nil, false, err
		}
		return messages, true, nil
	})
}
