package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/avvvet/persona-echo/internal/comm"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/service"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1024
)

// StreamGameHandler upgrades to a websocket and pushes game, players and
// messages snapshots as they change, plus the caller's derived state after
// every game or players snapshot. The caller is marked connected for as long
// as the socket is open.
func (h *Handler) StreamGameHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	id := gameID(r)
	game, err := h.gw.GetGame(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if game == nil {
		h.fail(w, service.ErrGameNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, id, conn)
	log.Infof("New WebSocket connection established: %s game=%s player=%s", socketId, id, caller)

	// r.Context() ends with the handler; the stream outlives it.
	ctx, cancel := context.WithCancel(context.Background())
	go h.handleStream(ctx, cancel, conn, socketId, id, caller)
}

func (h *Handler) handleStream(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, socketId, gameID, playerID string) {
	logger := log.WithFields(log.Fields{"socket_id": socketId, "game_id": gameID, "player_id": playerID})

	defer func() {
		cancel()
		conn.Close()
		h.ws.RemoveConnection(socketId)

		offCtx, offCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer offCancel()
		if err := h.gw.UpdatePlayerConnection(offCtx, gameID, playerID, false); err != nil {
			logger.Warnf("mark player disconnected: %s", err)
		}
		logger.Info("Closing WebSocket connection")
	}()

	if err := h.gw.UpdatePlayerConnection(ctx, gameID, playerID, true); err != nil {
		logger.Warnf("mark player connected: %s", err)
	}

	gameSub, err := h.gw.OnGameUpdate(ctx, gameID)
	if err != nil {
		logger.Errorf("subscribe game: %s", err)
		h.pushError(conn, socketId, "could not subscribe to game updates")
		return
	}
	defer gameSub.Unsubscribe()

	playersSub, err := h.gw.OnPlayersUpdate(ctx, gameID)
	if err != nil {
		logger.Errorf("subscribe players: %s", err)
		h.pushError(conn, socketId, "could not subscribe to players updates")
		return
	}
	defer playersSub.Unsubscribe()

	messagesSub, err := h.gw.OnMessagesUpdate(ctx, gameID)
	if err != nil {
		logger.Errorf("subscribe messages: %s", err)
		h.pushError(conn, socketId, "could not subscribe to messages updates")
		return
	}
	defer messagesSub.Unsubscribe()

	go h.readPump(conn, cancel, logger)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var (
		game    *models.Game
		players []*models.Player
	)

	for {
		var (
			eventType string
			data      any
			refresh   bool
		)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debugf("ping failed: %s", err)
				return
			}
			continue
		case g, ok := <-gameSub.C:
			if !ok {
				return
			}
			game, eventType, data, refresh = g, comm.EventGameUpdate, g, true
		case p, ok := <-playersSub.C:
			if !ok {
				return
			}
			players, eventType, data, refresh = p, comm.EventPlayersUpdate, p, true
		case m, ok := <-messagesSub.C:
			if !ok {
				return
			}
			eventType, data = comm.EventMessagesUpdate, m
		}

		if err := h.push(conn, socketId, eventType, data); err != nil {
			logger.Debugf("write %s: %s", eventType, err)
			return
		}

		if refresh && game != nil && players != nil {
			state := service.BuildGameState(game, players, playerID)
			if err := h.push(conn, socketId, comm.EventStateUpdate, state); err != nil {
				logger.Debugf("write %s: %s", comm.EventStateUpdate, err)
				return
			}
		}
	}
}

func (h *Handler) push(conn *websocket.Conn, socketId, eventType string, data any) error {
	msg, err := comm.NewWSMessage(eventType, socketId, data)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// pushError tells the client why its stream is about to end.
func (h *Handler) pushError(conn *websocket.Conn, socketId, reason string) {
	if err := h.push(conn, socketId, comm.EventError, comm.ErrorData{Error: reason}); err != nil {
		log.Debugf("write %s to socket %s: %s", comm.EventError, socketId, err)
	}
}

// readPump only keeps the read deadline moving; clients send nothing the
// gateway acts on. It cancels the stream once the socket goes away.
func (h *Handler) readPump(conn *websocket.Conn, cancel context.CancelFunc, logger *log.Entry) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("WebSocket unexpected close error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
