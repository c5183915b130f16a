package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/services"
)

type StateHandler struct {
	stateService services.StateService
	gameService  services.GameService
}

func NewStateHandler(stateService services.StateService, gameService services.GameService) *StateHandler {
	return &StateHandler{stateService: stateService, gameService: gameService}
}

func (h *StateHandler) Health(w http.ResponseWriter, r *http.Request) {
	okResponse(w)
}

func (h *StateHandler) PublicState(w http.ResponseWriter, r *http.Request) {
	state, err := h.stateService.PublicState(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *StateHandler) AdminState(w http.ResponseWriter, r *http.Request) {
	state, err := h.stateService.AdminState(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// PublishHistory lists the publish snapshots of one game, newest
// first, for the rollback panel.
func (h *StateHandler) PublishHistory(w http.ResponseWriter, r *http.Request) {
	gameNo, err := strconv.Atoi(chi.URLParam(r, "gameNo"))
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "gameNo must be an integer", nil)
		return
	}
	kind := models.PublishKind(r.URL.Query().Get("kind"))

	records, err := h.gameService.History(r.Context(), gameNo, kind)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"history": records})
}
