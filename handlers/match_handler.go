package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/junzhij/esports-tournament-live/models"
	"github.com/junzhij/esports-tournament-live/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var input services.MatchConfigInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.matchService.UpdateConfig(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *MatchHandler) SetScore(w http.ResponseWriter, r *http.Request) {
	var input services.ScoreInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.matchService.SetScore(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *MatchHandler) ResetTimer(w http.ResponseWriter, r *http.Request) {
	// An absent body means "reset to zero".
	var input services.TimerResetInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, err)
			return
		}
	}
	if err := h.matchService.ResetTimer(r.Context(), input); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *MatchHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	side := models.TeamSide(chi.URLParam(r, "side"))

	var input services.TeamUpdateInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.matchService.UpdateTeam(r.Context(), side, input); err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	okResponse(w)
}

func (h *MatchHandler) UploadTeamLogo(w http.ResponseWriter, r *http.Request) {
	side := models.TeamSide(chi.URLParam(r, "side"))

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, errors.New("content type required"))
		return
	}

	team, err := h.matchService.UploadTeamLogo(r.Context(), side, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"ok": true, "team": team})
}
