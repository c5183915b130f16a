package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func gameNoParam(r *http.Request) (int, bool) {
	gameNo, err := strconv.Atoi(chi.URLParam(r, "gameNo"))
	return gameNo, err == nil
}

func (h *GameHandler) SaveBpDraft(w http.ResponseWriter, r *http.Request) {
	gameNo, ok := gameNoParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	var payload models.BpPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.gameService.SaveBpDraft(r.Context(), gameNo, payload); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *GameHandler) PublishBp(w http.ResponseWriter, r *http.Request) {
	gameNo, ok := gameNoParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	if err := h.gameService.PublishBp(r.Context(), gameNo); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *GameHandler) LockBp(w http.ResponseWriter, r *http.Request) {
	gameNo, ok := gameNoParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	if err := h.gameService.LockBp(r.Context(), gameNo); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *GameHandler) PublishResult(w http.ResponseWriter, r *http.Request) {
	gameNo, ok := gameNoParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	var payload models.ResultPayload
	if err := readJSON(w, r, &payload); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.gameService.PublishResult(r.Context(), gameNo, payload); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

type rollbackInput struct {
	Kind string `json:"kind"`
}

func (h *GameHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	gameNo, ok := gameNoParam(r)
	if !ok {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	var input rollbackInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.gameService.Rollback(r.Context(), gameNo, models.PublishKind(input.Kind)); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}
