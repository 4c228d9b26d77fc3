package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartshare/internal/identity"
	"cartshare/pkg/logger"
)

type stubVerifier struct {
	user *identity.User
	err  error
	got  string
}

func (s *stubVerifier) Verify(_ context.Context, idToken string) (*identity.User, error) {
	s.got = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

type stubEnsurer struct {
	ensured []string
	err     error
}

func (s *stubEnsurer) EnsureUser(_ context.Context, user identity.User) error {
	s.ensured = append(s.ensured, user.UID)
	return s.err
}

func newAuthMiddleware(verifier *stubVerifier, ensurer *stubEnsurer) *AuthMiddleware {
	return &AuthMiddleware{
		Verifier: verifier,
		Roles:    ensurer,
		Logg:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	m := newAuthMiddleware(&stubVerifier{}, &stubEnsurer{})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	rec := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rec, httptest.NewRequest("GET", "/api/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	m := newAuthMiddleware(&stubVerifier{err: identity.ErrInvalidToken}, &stubEnsurer{})
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	})

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	m.Handler(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_AttachesUser(t *testing.T) {
	verifier := &stubVerifier{user: &identity.User{UID: "u1", Name: "Alice"}}
	ensurer := &stubEnsurer{}
	m := newAuthMiddleware(verifier, ensurer)

	var seen *identity.User
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	})

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	m.Handler(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.UID)
	assert.Equal(t, "token-123", verifier.got)
	assert.Equal(t, []string{"u1"}, ensurer.ensured)
}

func TestAuthMiddleware_EnsureFailureDoesNotBlock(t *testing.T) {
	verifier := &stubVerifier{user: &identity.User{UID: "u1"}}
	m := newAuthMiddleware(verifier, &stubEnsurer{err: assert.AnError})

	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest("GET", "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	m.Handler(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called, "first sign-in bookkeeping failure must not reject the request")
}
