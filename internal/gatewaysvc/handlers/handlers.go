package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/service"
	"github.com/avvvet/persona-echo/internal/gatewaysvc/ws"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	gw        *service.Gateway
	ws        *ws.Ws
	tokenAuth *jwtauth.JWTAuth
	upgrader  websocket.Upgrader
	port      string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(gw *service.Gateway, s *ws.Ws, port string) *Handler {
	return &Handler{
		gw:   gw,
		ws:   s,
		port: port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Errorf("request failed: %s", err)
	}
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Error: err.Error()})
}

// statusFor maps gateway errors onto HTTP status codes.
func statusFor(err error) int {
	var gerr service.GatewayError
	if !errors.As(err, &gerr) {
		return http.StatusInternalServerError
	}

	switch gerr {
	case service.ErrGameNotFound:
		return http.StatusNotFound
	case service.ErrGameInactive, service.ErrGameFull, service.ErrPlayerAlreadyInGame:
		return http.StatusConflict
	case service.ErrInvalidInput, service.ErrInvalidPhase:
		return http.StatusBadRequest
	case service.ErrNotHost, service.ErrNotInGame:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return service.ErrInvalidInput
	}
	return nil
}

// queryInt reads an optional integer query param; absent means fallback.
func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, service.ErrInvalidInput
	}
	return n, nil
}

func gameID(r *http.Request) string {
	return service.NormalizeGameCode(chi.URLParam(r, "gameID"))
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "gateway service is running at port "+h.port, nil)
}

// ArchivedAccuracyHandler reports the mean guess accuracy over archived games.
func (h *Handler) ArchivedAccuracyHandler(w http.ResponseWriter, r *http.Request) {
	avg, ok, err := h.gw.ArchivedAccuracy(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if !ok {
		h.CreateResponse(w, Response{Message: "stats archive not configured", Code: http.StatusNotFound, Error: "stats archive not configured"})
		return
	}
	h.ok(w, http.StatusOK, "ok", map[string]string{"averageGuessAccuracy": avg.StringFixed(4)})
}
