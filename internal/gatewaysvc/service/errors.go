package service

// GatewayError is the error kind returned by gateway operations
type GatewayError string

// Error implements the error interface
func (e GatewayError) Error() string {
	return string(e)
}

const (
	ErrGameNotFound        GatewayError = "game not found"
	ErrGameInactive        GatewayError = "game is no longer active"
	ErrGameFull            GatewayError = "game is at maximum capacity"
	ErrPlayerAlreadyInGame GatewayError = "player already in game"
	ErrInvalidPhase        GatewayError = "invalid game phase"
	ErrInvalidInput        GatewayError = "invalid input"
	ErrNotHost             GatewayError = "only the host can do this"
	ErrNotInGame           GatewayError = "not a player in this game"
	ErrNoGameCode          GatewayError = "no free game code"
	ErrNilConfig           GatewayError = "config cannot be nil"
	ErrNilStore            GatewayError = "store cannot be nil"
	ErrNilBus              GatewayError = "bus cannot be nil"
)
