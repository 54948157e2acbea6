package broker

import (
	"context"
	"encoding/json"
	"time"
)

type Kind string

const (
	KindGame     Kind = "game"
	KindPlayers  Kind = "players"
	KindMessages Kind = "messages"
)

// Change tells subscribers that something under a game moved. It carries no
// data; subscribers re-read their snapshot from the store.
type Change struct {
	GameID string    `json:"gameId"`
	Kind   Kind      `json:"kind"`
	At     time.Time `json:"at"`
}

// Bus fans change notices out to subscribers. Delivery is at-most-once and
// there is no ordering across kinds.
type Bus interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe registers fn for changes of one kind on one game. fn must not
	// block. The returned func cancels the registration.
	Subscribe(gameID string, kind Kind, fn func(Change)) (func(), error)
	Close() error
}

func topic(sep, gameID string, kind Kind) string {
	return "echo" + sep + "game" + sep + gameID + sep + string(kind)
}

func encode(c Change) ([]byte, error) {
	return json.Marshal(c)
}

func decode(data []byte) (Change, error) {
	var c Change
	err := json.Unmarshal(data, &c)
	return c, err
}
