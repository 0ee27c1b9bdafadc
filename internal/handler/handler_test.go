package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/handler"
	"github.com/sakif/conduit/internal/repository/sqlite"
	"github.com/sakif/conduit/internal/service"
)

var sharedKeys = sync.OnceValues(func() (*auth.KeyPair, error) {
	return auth.GenerateKeyPair("handler-test", 2048, 24*time.Hour)
})

type fixture struct {
	users    *handler.UserHandler
	profiles *handler.ProfileHandler
	articles *handler.ArticleHandler
	comments *handler.CommentHandler
	tags     *handler.TagHandler
	userSvc  *service.UserService
	artSvc   *service.ArticleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	keys, err := sharedKeys()
	require.NoError(t, err)

	profiles := service.NewProfileService(db, db, logger)
	userSvc := service.NewUserService(db, auth.NewPasswordServiceWithCost(4),
		auth.NewIssuer(keys, time.Hour, "conduit"), nil, logger)
	artSvc := service.NewArticleService(db, profiles, logger)

	return &fixture{
		users:    handler.NewUserHandler(userSvc, logger),
		profiles: handler.NewProfileHandler(profiles, logger),
		articles: handler.NewArticleHandler(artSvc, logger),
		comments: handler.NewCommentHandler(service.NewCommentService(db, db, profiles, logger), logger),
		tags:     handler.NewTagHandler(service.NewTagService(db, logger), logger),
		userSvc:  userSvc,
		artSvc:   artSvc,
	}
}

func (f *fixture) register(t *testing.T, username string) {
	t.Helper()
	_, err := f.userSvc.Register(t.Context(), username, username+"@example.com", "password-of-"+username)
	require.NoError(t, err)
}

// newRequest builds a request as the router would hand it over: path
// values set and, when user is non-empty, authenticated.
func newRequest(method, target, body, user string, pathValues ...string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	if user != "" {
		req = req.WithContext(auth.WithUsername(req.Context(), user))
	}
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestUserHandler_Register(t *testing.T) {
	f := newFixture(t)

	t.Run("created", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.users.HandleRegister(rr, newRequest(http.MethodPost, "/api/users",
			`{"user":{"username":"jake","email":"jake@jake.jake","password":"jakejakejake"}}`, ""))

		assert.Equal(t, http.StatusCreated, rr.Code)
		user := decode(t, rr)["user"].(map[string]any)
		assert.Equal(t, "jake", user["username"])
		assert.Equal(t, "jake@jake.jake", user["email"])
		assert.NotEmpty(t, user["token"])
		assert.NotContains(t, user, "password")
	})

	t.Run("duplicate is a conflict", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.users.HandleRegister(rr, newRequest(http.MethodPost, "/api/users",
			`{"user":{"username":"jake","email":"other@jake.jake","password":"jakejakejake"}}`, ""))

		assert.Equal(t, http.StatusConflict, rr.Code)
		body := decode(t, rr)
		assert.Equal(t, "conflict", body["error"])
		assert.Equal(t, "username", body["field"])
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.users.HandleRegister(rr, newRequest(http.MethodPost, "/api/users", `{"user":`, ""))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.users.HandleRegister(rr, newRequest(http.MethodPost, "/api/users",
			`{"user":{"username":"jim","email":"nope","password":"jimjimjim"}}`, ""))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		assert.Equal(t, "email", decode(t, rr)["field"])
	})
}

func TestUserHandler_Update(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")

	rr := httptest.NewRecorder()
	f.users.HandleUpdate(rr, newRequest(http.MethodPut, "/api/user", `{"user":{"bio":"I like to skateboard"}}`, "jake"))

	assert.Equal(t, http.StatusOK, rr.Code)
	user := decode(t, rr)["user"].(map[string]any)
	assert.Equal(t, "I like to skateboard", user["bio"])
	assert.Equal(t, "jake@example.com", user["email"])
}

func TestProfileHandler(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")
	f.register(t, "jane")

	rr := httptest.NewRecorder()
	f.profiles.HandleFollow(rr, newRequest(http.MethodPost, "/api/profiles/jane/follow", "", "jake", "username", "jane"))
	require.Equal(t, http.StatusOK, rr.Code)
	profile := decode(t, rr)["profile"].(map[string]any)
	assert.Equal(t, "jane", profile["username"])
	assert.Equal(t, true, profile["following"])

	rr = httptest.NewRecorder()
	f.profiles.HandleGet(rr, newRequest(http.MethodGet, "/api/profiles/ghost", "", "", "username", "ghost"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestArticleHandler_CreateAndList(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")

	rr := httptest.NewRecorder()
	f.articles.HandleCreate(rr, newRequest(http.MethodPost, "/api/articles",
		`{"article":{"title":"Hello World","description":"d","body":"b","tagList":["intro"]}}`, "jake"))
	require.Equal(t, http.StatusCreated, rr.Code)
	article := decode(t, rr)["article"].(map[string]any)
	assert.Equal(t, "hello-world", article["slug"])
	assert.Equal(t, []any{"intro"}, article["tagList"])
	assert.Equal(t, "jake", article["author"].(map[string]any)["username"])
	assert.NotContains(t, article, "id")

	rr = httptest.NewRecorder()
	f.articles.HandleList(rr, newRequest(http.MethodGet, "/api/articles?tag=intro&limit=5", "", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, float64(1), body["articlesCount"])

	rr = httptest.NewRecorder()
	f.articles.HandleList(rr, newRequest(http.MethodGet, "/api/articles?tag=none", "", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{}, decode(t, rr)["articles"], "an empty list is [] not null")

	rr = httptest.NewRecorder()
	f.articles.HandleList(rr, newRequest(http.MethodGet, "/api/articles?limit=-1", "", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestArticleHandler_CountIsTotalNotPage(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")
	for _, title := range []string{"One", "Two", "Three"} {
		_, err := f.artSvc.Create(t.Context(), "jake", service.ArticleInput{
			Title: &title, Body: &title,
		})
		require.NoError(t, err)
	}

	rr := httptest.NewRecorder()
	f.articles.HandleList(rr, newRequest(http.MethodGet, "/api/articles?limit=2&offset=0", "", ""))
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode(t, rr)
	assert.Len(t, body["articles"], 2)
	assert.Equal(t, float64(3), body["articlesCount"])
}

func TestArticleHandler_ForbiddenForOthers(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")
	f.register(t, "jane")
	title := "Mine"
	_, err := f.artSvc.Create(t.Context(), "jake", service.ArticleInput{Title: &title, Body: &title})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	f.articles.HandleDelete(rr, newRequest(http.MethodDelete, "/api/articles/mine", "", "jane", "slug", "mine"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	f.articles.HandleDelete(rr, newRequest(http.MethodDelete, "/api/articles/mine", "", "jake", "slug", "mine"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCommentHandler(t *testing.T) {
	f := newFixture(t)
	f.register(t, "jake")
	title := "Discuss"
	_, err := f.artSvc.Create(t.Context(), "jake", service.ArticleInput{Title: &title, Body: &title})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	f.comments.HandleAdd(rr, newRequest(http.MethodPost, "/api/articles/discuss/comments",
		`{"comment":{"body":"first"}}`, "jake", "slug", "discuss"))
	require.Equal(t, http.StatusCreated, rr.Code)
	comment := decode(t, rr)["comment"].(map[string]any)
	assert.Equal(t, "first", comment["body"])

	rr = httptest.NewRecorder()
	f.comments.HandleDelete(rr, newRequest(http.MethodDelete, "/api/articles/discuss/comments/abc", "", "jake",
		"slug", "discuss", "id", "abc"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	f.comments.HandleList(rr, newRequest(http.MethodGet, "/api/articles/discuss/comments", "", "", "slug", "discuss"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["comments"], 1)
}

func TestTagHandler_Empty(t *testing.T) {
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.tags.HandleList(rr, newRequest(http.MethodGet, "/api/tags", "", ""))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{}, decode(t, rr)["tags"])
}
