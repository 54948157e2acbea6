package comm

import (
	"encoding/json"
)

// Websocket event types pushed to game clients.
const (
	EventGameUpdate     = "game-update"
	EventPlayersUpdate  = "players-update"
	EventMessagesUpdate = "messages-update"
	EventStateUpdate    = "state-update"
	EventError          = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // one of the Event* values
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

type ErrorData struct {
	Error string `json:"error"`
}

// NewWSMessage wraps v as the data of a typed envelope.
func NewWSMessage(eventType, socketId string, v any) (*WSMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &WSMessage{Type: eventType, Data: data, SocketId: socketId}, nil
}
