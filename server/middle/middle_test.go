package middle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signToken(t *testing.T, key []byte, expired bool) string {
	t.Helper()
	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "api",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func Test_RequireAPIKey_ValidToken(t *testing.T) {
	assert := assert.New(t)
	key := []byte("sekrit")
	h := RequireAPIKey(key)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/parse", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, false))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)
}

func Test_RequireAPIKey_MissingHeader(t *testing.T) {
	assert := assert.New(t)
	h := RequireAPIKey([]byte("sekrit"))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/parse", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_RequireAPIKey_WrongKey(t *testing.T) {
	assert := assert.New(t)
	h := RequireAPIKey([]byte("sekrit"))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/parse", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("wrong-key"), false))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_RequireAPIKey_ExpiredToken(t *testing.T) {
	assert := assert.New(t)
	key := []byte("sekrit")
	h := RequireAPIKey(key)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/parse", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, true))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_RequireAPIKey_MalformedScheme(t *testing.T) {
	assert := assert.New(t)
	h := RequireAPIKey([]byte("sekrit"))(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/parse", nil)
	req.Header.Set("Authorization", "Basic sometoken")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_RequestID_SetsHeaderAndContext(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var seenID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = RequestIDFromContext(r.Context())
	})
	h := RequestID()(inner)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.NotEmpty(rec.Header().Get("X-Request-Id"))
	assert.Equal(rec.Header().Get("X-Request-Id"), seenID)
}

func Test_DontPanic_RecoversAndReturns500(t *testing.T) {
	assert := assert.New(t)
	h := DontPanic()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	assert.NotPanics(func() {
		h.ServeHTTP(rec, req)
	})
	assert.Equal(http.StatusInternalServerError, rec.Code)
}
