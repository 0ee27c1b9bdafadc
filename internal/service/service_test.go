package service

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/repository/sqlite"
)

// =========================================================================
// SHARED HELPERS
// =========================================================================

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// RSA key generation is slow; every test in the package shares one pair.
var sharedKeys = sync.OnceValues(func() (*auth.KeyPair, error) {
	return auth.GenerateKeyPair("service-test", 2048, 24*time.Hour)
})

func testKeys(t *testing.T) *auth.KeyPair {
	t.Helper()
	kp, err := sharedKeys()
	if err != nil {
		t.Fatalf("generating key pair: %v", err)
	}
	return kp
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type testServices struct {
	store    *sqlite.DB
	users    *UserService
	profiles *ProfileService
	articles *ArticleService
	comments *CommentService
	tags     *TagService
	verifier *auth.Verifier
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := newTestStore(t)
	kp := testKeys(t)
	logger := testLogger()

	// bcrypt.MinCost keeps the tests fast
	passwords := auth.NewPasswordServiceWithCost(4)
	profiles := NewProfileService(store, store, logger)

	return &testServices{
		store:    store,
		users:    NewUserService(store, passwords, auth.NewIssuer(kp, time.Hour, "conduit"), func() time.Time { return testNow }, logger),
		profiles: profiles,
		articles: NewArticleService(store, profiles, logger),
		comments: NewCommentService(store, store, profiles, logger),
		tags:     NewTagService(store, logger),
		verifier: auth.NewVerifier(kp, nil),
	}
}

func (s *testServices) register(t *testing.T, username string) {
	t.Helper()
	if _, err := s.users.Register(t.Context(), username, username+"@example.com", "password-of-"+username); err != nil {
		t.Fatalf("registering %s: %v", username, err)
	}
}

func ptr(s string) *string { return &s }
