package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvidic/corvid/internal/config"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/semantics"
	"github.com/corvidic/corvid/query"
)

const testAPIKey = "sekrit-api-key"

func testAPIKeyHash(t *testing.T) string {
	t.Helper()
	hash, err := config.HashAPIKey(testAPIKey)
	require.NoError(t, err)
	return hash
}

func testGrammar() *grammar.Grammar {
	sem := semantics.Func("repositories", 0, 0, 0, false)
	return &grammar.Grammar{
		StartSymbol: "query",
		States: []grammar.State{
			{Shifts: []grammar.Shift{{Symbol: "repos_kw", NextState: 1}, {Symbol: "query", NextState: 2}}},
			{Reductions: []grammar.Reduction{
				{LHS: "query", RHSArity: 1, RuleProps: []grammar.RuleProps{{
					Cost: 0, Semantic: &sem, Text: grammar.Text{{Literal: "repos"}},
				}}},
			}},
			{IsAccept: true},
		},
		Symbols: map[string]grammar.Symbol{
			"repos_kw": {
				Name: "repos_kw", IsTerminal: true,
				TerminalRules: []grammar.RuleProps{{Cost: 0, Text: grammar.Text{{Literal: "repos"}}}},
			},
			"query": {Name: "query"},
		},
	}
}

func signedToken(t *testing.T, key []byte) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "api",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func Test_HandleParse_RequiresAuth(t *testing.T) {
	assert := assert.New(t)
	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	body, _ := json.Marshal(parseRequest{Query: "repos"})
	req := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_HandleParse_ReturnsResults(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	reqBody := parseRequest{
		Query: "repos",
		Options: requestOptions{
			K: 3, Semantics: true, Costs: true,
		},
	}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, key))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)

	var out parseResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(out.Results, 1)
	assert.Equal("repos", out.Results[0].Text)
	assert.Equal("repositories()", out.Results[0].Semantic)
	require.NotNil(out.Results[0].Cost)
	assert.False(out.Partial)
}

func Test_HandleParse_MalformedBody(t *testing.T) {
	assert := assert.New(t)
	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+signedToken(t, key))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(http.StatusBadRequest, rec.Code)
}

func Test_HandleToken_ValidAPIKeyIssuesBearerToken(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	body, _ := json.Marshal(tokenRequest{APIKey: testAPIKey})
	req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)

	var out tokenResponse
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(out.Token)

	// the issued token must itself pass /parse's bearer-token gate.
	parseBody, _ := json.Marshal(parseRequest{Query: "repos"})
	parseReq := httptest.NewRequest(http.MethodPost, "/parse", bytes.NewReader(parseBody))
	parseReq.Header.Set("Authorization", "Bearer "+out.Token)
	parseRec := httptest.NewRecorder()
	srv.ServeHTTP(parseRec, parseReq)
	assert.Equal(http.StatusOK, parseRec.Code)
}

func Test_HandleToken_WrongAPIKeyRejected(t *testing.T) {
	require := require.New(t)

	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	body, _ := json.Marshal(tokenRequest{APIKey: "not-the-key"})
	req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(http.StatusUnauthorized, rec.Code)
}

func Test_HandleToken_MalformedBody(t *testing.T) {
	assert := assert.New(t)
	key := []byte("sekrit")
	srv := New(query.New(testGrammar()), key, testAPIKeyHash(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/token", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(http.StatusBadRequest, rec.Code)
}
