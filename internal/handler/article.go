package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

// ArticleHandler serves /api/articles, including the feed and favorites.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

type articleResponse struct {
	Article *model.Article `json:"article"`
}

type articlesResponse struct {
	Articles      []model.Article `json:"articles"`
	ArticlesCount int             `json:"articlesCount"`
}

type articleRequest struct {
	Article struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Body        *string  `json:"body"`
		TagList     []string `json:"tagList"`
	} `json:"article"`
}

func (req articleRequest) input() service.ArticleInput {
	return service.ArticleInput{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		TagList:     req.Article.TagList,
	}
}

// writeArticles writes one page. articlesCount is the total across all
// pages, so clients can paginate.
func (h *ArticleHandler) writeArticles(w http.ResponseWriter, articles []model.Article, total int) {
	if articles == nil {
		articles = []model.Article{}
	}
	writeJSON(w, h.logger, http.StatusOK, articlesResponse{Articles: articles, ArticlesCount: total})
}

// HandleList serves GET /api/articles?tag=&author=&favorited=&limit=&offset=
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	articles, total, err := h.articles.List(r.Context(), viewer(r), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeArticles(w, articles, total)
}

// HandleFeed serves GET /api/articles/feed: articles by followed authors.
func (h *ArticleHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	articles, total, err := h.articles.Feed(r.Context(), viewer(r), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.writeArticles(w, articles, total)
}

func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Get(r.Context(), viewer(r), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, articleResponse{Article: article})
}

func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	article, err := h.articles.Create(r.Context(), viewer(r), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, articleResponse{Article: article})
}

func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := decodeJSON(w, r, h.logger, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	article, err := h.articles.Update(r.Context(), viewer(r), r.PathValue("slug"), req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, articleResponse{Article: article})
}

func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), viewer(r), r.PathValue("slug")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArticleHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Favorite(r.Context(), viewer(r), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, articleResponse{Article: article})
}

func (h *ArticleHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	article, err := h.articles.Unfavorite(r.Context(), viewer(r), r.PathValue("slug"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, articleResponse{Article: article})
}
