// Package server exposes corvid's query engine over HTTP: a POST
// /token endpoint that exchanges the deployment's single static API
// key for a short-lived bearer token, and a POST /parse endpoint,
// gated on that bearer token, that accepts a query string and the same
// option set as the CLI driver. Grounded on the teacher's
// server/server.go (chi-routed handlers returning JSON, a login
// endpoint that verifies a bcrypt-hashed credential and hands back a
// JWT) and server/middle (the middleware chain), scoped down to one
// static API key with no user accounts.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/corvidic/corvid/internal/config"
	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/corvidic/corvid/internal/semantics"
	"github.com/corvidic/corvid/query"
	"github.com/corvidic/corvid/server/middle"
	"github.com/corvidic/corvid/server/querylog"
)

// TokenLifetime is how long a token issued by /token remains valid.
const TokenLifetime = 24 * time.Hour

// Server answers HTTP requests against a single loaded query.Engine.
type Server struct {
	router     *chi.Mux
	engine     *query.Engine
	log        *querylog.Store
	signingKey []byte
	apiKeyHash string
}

// New builds a Server wired to engine. apiKeyHash is the bcrypt hash
// (internal/config.HashAPIKey) a caller's key must match at POST
// /token to be issued a bearer token signed with signingKey; /parse is
// gated on that bearer token. log may be nil, in which case served
// queries are not recorded.
func New(engine *query.Engine, signingKey []byte, apiKeyHash string, log *querylog.Store) *Server {
	s := &Server{engine: engine, log: log, signingKey: signingKey, apiKeyHash: apiKeyHash}

	r := chi.NewRouter()
	r.Use(middle.RequestID())
	r.Use(middle.DontPanic())
	r.Post("/token", s.handleToken)
	r.Group(func(r chi.Router) {
		r.Use(middle.RequireAPIKey(signingKey))
		r.Post("/parse", s.handleParse)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type tokenRequest struct {
	APIKey string `json:"apiKey"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}

	if !(config.ServerConfig{APIKeyHash: s.apiKeyHash}).VerifyAPIKey(req.APIKey) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	tok, err := IssueAPIToken(s.signingKey, TokenLifetime)
	if err != nil {
		log.Printf("ERROR: issue api token: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tokenResponse{Token: tok}); err != nil {
		log.Printf("ERROR: encode token response: %s", err)
	}
}

type parseRequest struct {
	Query   string         `json:"query"`
	Options requestOptions `json:"options"`
}

type requestOptions struct {
	K                int  `json:"k"`
	Semantics        bool `json:"semantics"`
	ObjectSemantics  bool `json:"objectSemantics"`
	Costs            bool `json:"costs"`
	Trees            bool `json:"trees"`
	TreeNodeCosts    bool `json:"treeNodeCosts"`
	TreeTokenRanges  bool `json:"treeTokenRanges"`
	ParseStack       bool `json:"parseStack"`
	ParseForest      bool `json:"parseForest"`
	ParseForestGraph bool `json:"parseForestGraph"`
	DeadlineMs       int  `json:"deadlineMs"`
}

type resultJSON struct {
	Text     string      `json:"text"`
	Semantic interface{} `json:"semantic,omitempty"`
	Cost     *float64    `json:"cost,omitempty"`
}

type parseResponse struct {
	Results          []resultJSON `json:"results"`
	Partial          bool         `json:"partial"`
	Trees            string       `json:"trees,omitempty"`
	ParseStack       string       `json:"parseStack,omitempty"`
	ParseForest      string       `json:"parseForest,omitempty"`
	ParseForestGraph string       `json:"parseForestGraph,omitempty"`
}

func toEngineOptions(ro requestOptions) query.Options {
	opts := query.Options{
		K:               ro.K,
		Semantics:       ro.Semantics,
		ObjectSemantics: ro.ObjectSemantics,
		Costs:           ro.Costs,
		DeadlineMs:      ro.DeadlineMs,
	}
	opts.Trees = ro.Trees
	opts.TreeNodeCosts = ro.TreeNodeCosts
	opts.TreeTokenRanges = ro.TreeTokenRanges
	opts.ParseStack = ro.ParseStack
	opts.ParseForest = ro.ParseForest
	opts.ParseForestGraph = ro.ParseForestGraph
	return opts
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return
	}

	opts := toEngineOptions(req.Options)

	start := time.Now()
	resp, err := s.engine.Parse(r.Context(), req.Query, opts)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("ERROR: parse %q: %s", req.Query, err)
		if qerrors.ClassifyKind(err) == qerrors.KindInvariantViolation {
			http.Error(w, "internal invariant violation", http.StatusInternalServerError)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := parseResponse{
		Partial:          resp.Partial,
		Trees:            resp.Debug.Trees,
		ParseStack:       resp.Debug.ParseStack,
		ParseForest:      resp.Debug.ParseForest,
		ParseForestGraph: resp.Debug.ParseForestGraph,
	}
	for _, res := range resp.Results {
		rj := resultJSON{Text: res.Text}
		if opts.Semantics {
			if opts.ObjectSemantics {
				rj.Semantic = semanticToObject(res.Semantic)
			} else {
				rj.Semantic = semantics.CanonicalString(res.Semantic)
			}
		}
		if opts.Costs {
			c := res.Cost
			rj.Cost = &c
		}
		out.Results = append(out.Results, rj)
	}

	if s.log != nil {
		entry := querylog.Entry{
			Query:    req.Query,
			K:        opts.K,
			Results:  resp.Results,
			Duration: elapsed,
			Partial:  resp.Partial,
		}
		if err := s.log.Record(r.Context(), entry); err != nil {
			log.Printf("ERROR: query log write: %s", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Printf("ERROR: encode parse response: %s", err)
	}
}

func semanticToObject(s semantics.Semantic) interface{} {
	if s.IsArg {
		return s.Name
	}
	args := make([]interface{}, len(s.Args))
	for i, a := range s.Args {
		args[i] = semanticToObject(a)
	}
	return map[string]interface{}{"name": s.Name, "args": args}
}
