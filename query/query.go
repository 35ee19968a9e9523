// Package query is the public entry point wrapping the internal
// lex -> chart -> anneal -> pfsearch pipeline behind a small API: an
// Engine loads a compiled grammar once and answers any number of
// concurrent Parse calls against it.
package query

import (
	"context"
	"time"

	"github.com/corvidic/corvid/internal/anneal"
	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/lex"
	"github.com/corvidic/corvid/internal/pfsearch"
	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/corvidic/corvid/internal/render"
	"github.com/corvidic/corvid/internal/semantics"
)

// DefaultK is the number of result trees emitted when Options.K is left
// at its zero value.
const DefaultK = 7

// Options controls a single Parse call, mirroring the query-driver
// interface's option table.
type Options struct {
	K               int
	Quiet           bool
	Semantics       bool
	ObjectSemantics bool
	Costs           bool
	DeadlineMs      int

	render.Options
}

// Result is one emitted parse: its rendered text, the semantic it
// reduced to, and the total cost of the derivation that produced it.
type Result struct {
	Text     string
	Semantic semantics.Semantic
	Cost     float64
}

// Response is the full return of a Parse call.
type Response struct {
	Results []Result
	Partial bool
	Debug   render.Dumps
}

// Engine answers Parse calls against a single loaded Grammar. It holds
// no mutable state of its own and is safe for concurrent use by any
// number of callers.
type Engine struct {
	g *grammar.Grammar
}

// New returns an Engine over g.
func New(g *grammar.Grammar) *Engine {
	return &Engine{g: g}
}

// Parse runs the full pipeline against query and returns up to opts.K
// results ordered by non-decreasing cost with no duplicate semantics.
//
// On NoParse or NoLegalTree (the forest parsed but every candidate
// produced a contradictory semantic, surfacing here as zero results with
// partial=false) the pipeline is retried once with every token treated
// as deletable; if that also fails, an empty Response is returned with
// no error. InvariantViolation errors are never retried -- they signal a
// grammar bug, not a recoverable input condition -- and are returned
// directly.
func (e *Engine) Parse(ctx context.Context, query string, opts Options) (Response, error) {
	if opts.K <= 0 {
		opts.K = DefaultK
	}

	runCtx := ctx
	if opts.DeadlineMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.DeadlineMs)*time.Millisecond)
		defer cancel()
	}

	tokens := lex.Tokenize(query)

	resp, err := e.attempt(runCtx, tokens, false, opts)
	if err != nil {
		return Response{}, err
	}
	if needsRetry(resp) {
		resp, err = e.attempt(runCtx, tokens, true, opts)
		if err != nil {
			return Response{}, err
		}
	}
	return resp, nil
}

// needsRetry reports whether resp is the "nothing usable came back"
// signal that drives the single all-deletable retry: either NoParse
// (attempt returns an empty, non-partial Response for it) or
// NoLegalTree (pfsearch exhausts its queue with zero surviving paths).
// A timeout is not retried: partial results from a deadline are still
// the best answer available, not a failure to recover from.
func needsRetry(resp Response) bool {
	return !resp.Partial && len(resp.Results) == 0
}

func (e *Engine) attempt(ctx context.Context, tokens []string, allDeletable bool, opts Options) (Response, error) {
	matches := lex.MatchTerminals(e.g, tokens, allDeletable)
	p := chart.New(e.g)

	start, err := p.Parse(matches, len(tokens))
	if err != nil {
		if qerrors.ClassifyKind(err) == qerrors.KindNoParse {
			return Response{}, nil
		}
		return Response{}, err
	}

	if err := anneal.Annotate(start); err != nil {
		return Response{}, err
	}

	hits, partial, err := pfsearch.Enumerate(ctx, start, opts.K)
	if err != nil && qerrors.ClassifyKind(err) != qerrors.KindTimeoutExpired {
		return Response{}, err
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{Text: h.Text, Semantic: h.Semantic, Cost: h.Cost}
	}

	resp := Response{Results: results, Partial: partial}
	if opts.Trees || opts.ParseStack || opts.ParseForest || opts.ParseForestGraph {
		resp.Debug = render.Dump(start, opts.Options)
	}
	return resp, nil
}
