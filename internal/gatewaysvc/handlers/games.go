package handlers

import (
	"net/http"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/models"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/service"
)

type createGameRequest struct {
	HostName string `json:"hostName"`
}

type joinGameRequest struct {
	PlayerName string `json:"playerName"`
}

type phaseRequest struct {
	Phase         models.GamePhase `json:"phase"`
	Round         *int             `json:"round"`
	TimeRemaining *int             `json:"timeRemaining"`
	IsActive      *bool            `json:"isActive"`
	MaxPlayers    *int             `json:"maxPlayers"`
}

type timerRequest struct {
	TimeRemaining *int `json:"timeRemaining"`
}

type connectionRequest struct {
	Connected *bool `json:"connected"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type voteRequest struct {
	TargetID string `json:"targetId"`
	Guess    string `json:"guess"`
}

func (h *Handler) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var req createGameRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	id, err := h.gw.CreateGame(r.Context(), hostID, req.HostName)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.ok(w, http.StatusCreated, "game created", map[string]string{"gameId": id})
}

func (h *Handler) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	game, err := h.gw.GetGame(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if game == nil {
		h.fail(w, service.ErrGameNotFound)
		return
	}
	h.ok(w, http.StatusOK, "ok", game)
}

// hostOnly answers 403/404 unless the caller hosts the game in the path.
func (h *Handler) hostOnly(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return "", false
	}
	id := gameID(r)
	if _, err := h.gw.RequireHost(r.Context(), id, caller); err != nil {
		h.fail(w, err)
		return "", false
	}
	return id, true
}

func (h *Handler) CleanupGameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostOnly(w, r)
	if !ok {
		return
	}
	if err := h.gw.CleanupGame(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.ws.CloseRoom(id, "game closed")
	h.ok(w, http.StatusOK, "game closed", nil)
}

func (h *Handler) UpdatePhaseHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostOnly(w, r)
	if !ok {
		return
	}

	var req phaseRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	extra := &service.PhaseExtra{
		Round:         req.Round,
		TimeRemaining: req.TimeRemaining,
		IsActive:      req.IsActive,
		MaxPlayers:    req.MaxPlayers,
	}
	if err := h.gw.UpdateGamePhase(r.Context(), id, req.Phase, extra); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "phase updated", nil)
}

func (h *Handler) UpdateTimerHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostOnly(w, r)
	if !ok {
		return
	}

	var req timerRequest
	if err := decodeBody(r, &req); err != nil || req.TimeRemaining == nil {
		h.fail(w, service.ErrInvalidInput)
		return
	}
	if err := h.gw.UpdateGameTimer(r.Context(), id, *req.TimeRemaining); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "timer updated", nil)
}

func (h *Handler) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}
	state, err := h.gw.GetGameState(r.Context(), gameID(r), caller)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "ok", state)
}

func (h *Handler) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var req joinGameRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	game, err := h.gw.JoinGame(r.Context(), gameID(r), caller, req.PlayerName)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, "joined game", game)
}

func (h *Handler) ListPlayersHandler(w http.ResponseWriter, r *http.Request) {
	players, err := h.gw.GetGamePlayers(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "ok", players)
}

func (h *Handler) LeaveGameHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}
	if err := h.gw.RemovePlayerFromGame(r.Context(), gameID(r), caller); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "left game", nil)
}

func (h *Handler) UpdatePersonaHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var persona models.Persona
	if err := decodeBody(r, &persona); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.gw.UpdatePlayerPersona(r.Context(), gameID(r), caller, persona); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "persona saved", nil)
}

func (h *Handler) UpdateConnectionHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var req connectionRequest
	if err := decodeBody(r, &req); err != nil || req.Connected == nil {
		h.fail(w, service.ErrInvalidInput)
		return
	}
	if err := h.gw.UpdatePlayerConnection(r.Context(), gameID(r), caller, *req.Connected); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "connection updated", nil)
}

func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	// the sender name comes from the player record, not the request
	id := gameID(r)
	sender, err := h.gw.RequirePlayer(r.Context(), id, caller)
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.gw.SendMessage(r.Context(), id, caller, sender.PlayerName, req.Message); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, "message sent", nil)
}

func (h *Handler) SendSystemMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostOnly(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.gw.SendSystemMessage(r.Context(), id, req.Message); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, "message sent", nil)
}

func (h *Handler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, err)
		return
	}
	messages, err := h.gw.GetGameMessages(r.Context(), gameID(r), limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "ok", messages)
}

func (h *Handler) SubmitVoteHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.withPlayer(w, r)
	if !ok {
		return
	}

	var req voteRequest
	if err := decodeBody(r, &req); err != nil {
		h.fail(w, err)
		return
	}

	id := gameID(r)
	if _, err := h.gw.RequirePlayer(r.Context(), id, caller); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.gw.SubmitVote(r.Context(), id, caller, req.TargetID, req.Guess); err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, "vote recorded", nil)
}

func (h *Handler) ListVotesHandler(w http.ResponseWriter, r *http.Request) {
	round, err := queryInt(r, "round", 0)
	if err != nil {
		h.fail(w, err)
		return
	}
	votes, err := h.gw.GetGameVotes(r.Context(), gameID(r), round)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "ok", votes)
}

func (h *Handler) UpdateStatsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hostOnly(w, r)
	if !ok {
		return
	}

	var partial models.GameStats
	if err := decodeBody(r, &partial); err != nil {
		h.fail(w, err)
		return
	}
	stats, err := h.gw.UpdateGameStats(r.Context(), id, partial)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, "stats saved", stats)
}

func (h *Handler) ListStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.gw.GetGameStats(r.Context(), gameID(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, "ok", stats)
}
