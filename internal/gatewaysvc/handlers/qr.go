package handlers

import (
	"net/http"
	"strconv"

	"github.com/avvvet/persona-echo/internal/gatewaysvc/service"
	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// JoinQRHandler renders the game's join code as a PNG QR code.
func (h *Handler) JoinQRHandler(w http.ResponseWriter, r *http.Request) {
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

	png, err := qrcode.Encode(game.ID, qrcode.Medium, qrSize)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
