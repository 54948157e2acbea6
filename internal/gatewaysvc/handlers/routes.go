package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

var errNoSubject = errors.New("token has no subject")

func (h *Handler) SetRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes; browsers cannot set headers on a websocket dial, so
		// the token is also accepted as ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(h.tokenAuth, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
			r.Use(jwtauth.Authenticator)

			r.Get("/stats/accuracy", h.ArchivedAccuracyHandler)

			r.Post("/games", h.CreateGameHandler)
			r.Route("/games/{gameID}", func(r chi.Router) {
				r.Get("/", h.GetGameHandler)
				r.Delete("/", h.CleanupGameHandler)
				r.Put("/phase", h.UpdatePhaseHandler)
				r.Put("/timer", h.UpdateTimerHandler)
				r.Get("/state", h.GameStateHandler)
				r.Get("/qr", h.JoinQRHandler)
				r.Get("/ws", h.StreamGameHandler)

				r.Post("/players", h.JoinGameHandler)
				r.Get("/players", h.ListPlayersHandler)
				r.Delete("/players/me", h.LeaveGameHandler)
				r.Put("/players/me/persona", h.UpdatePersonaHandler)
				r.Put("/players/me/connection", h.UpdateConnectionHandler)

				r.Post("/messages", h.SendMessageHandler)
				r.Post("/messages/system", h.SendSystemMessageHandler)
				r.Get("/messages", h.ListMessagesHandler)

				r.Post("/votes", h.SubmitVoteHandler)
				r.Get("/votes", h.ListVotesHandler)

				r.Post("/stats", h.UpdateStatsHandler)
				r.Get("/stats", h.ListStatsHandler)
			})
		})
	})
}

// InitAuth sets the HS256 key player tokens are verified with. Tokens are
// issued elsewhere; the player id is the "sub" claim.
func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}

func playerID(r *http.Request) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", err
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errNoSubject
	}
	return sub, nil
}

// withPlayer resolves the caller's player id or answers 401.
func (h *Handler) withPlayer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := playerID(r)
	if err != nil {
		h.CreateResponse(w, Response{Message: http.StatusText(http.StatusUnauthorized), Code: http.StatusUnauthorized, Error: err.Error()})
		return "", false
	}
	return id, true
}
