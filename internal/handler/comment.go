package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleList serves GET /api/articles/{slug}/comments.
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), viewer(r), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, struct {
		Comments []model.Comment `json:"comments"`
	}{comments})
}

// HandleAdd expects {"comment": {"body"}}.
func (h *CommentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Comment struct {
			Body string `json:"body"`
		} `json:"comment"`
	}
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Add(r.Context(), viewer(r), r.PathValue("slug"), req.Comment.Body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, struct {
		Comment *model.Comment `json:"comment"`
	}{comment})
}

func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("id", "comment id must be an integer"))
		return
	}
	if err := h.comments.Delete(r.Context(), viewer(r), r.PathValue("slug"), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
