package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

type profileResponse struct {
	Profile *model.Profile `json:"profile"`
}

// HandleGet serves GET /api/profiles/{username}, with or without a token.
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), viewer(r), r.PathValue("username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, profileResponse{Profile: p})
}

func (h *ProfileHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Follow(r.Context(), viewer(r), r.PathValue("username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, profileResponse{Profile: p})
}

func (h *ProfileHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Unfollow(r.Context(), viewer(r), r.PathValue("username"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, profileResponse{Profile: p})
}
