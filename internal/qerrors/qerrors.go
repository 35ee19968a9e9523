// Package qerrors defines the error kinds produced by the parsing and
// search pipeline: grammar load failures, invariant violations found
// while annotating the packed forest, and the no-parse/no-legal-tree/
// timeout conditions a query driver must distinguish between.
package qerrors

import "fmt"

// Kind identifies which of the error kinds an error belongs to, so that
// callers that only care about classification (not message text) can
// switch on it without type-asserting each struct.
type Kind string

const (
	KindGrammarLoad       Kind = "grammar-load"
	KindInvariantViolation Kind = "invariant-violation"
	KindNoParse           Kind = "no-parse"
	KindNoLegalTree       Kind = "no-legal-tree"
	KindTimeoutExpired    Kind = "timeout-expired"
)

// qerr is the common shape of every error kind this package produces: a
// kind tag, a message, and an optionally-wrapped cause.
type qerr struct {
	kind Kind
	msg  string
	wrap error
}

func (e *qerr) Error() string {
	return e.msg
}

func (e *qerr) Unwrap() error {
	return e.wrap
}

// ClassifyKind returns the Kind of err. Returns "" if err was not produced
// by this package.
func ClassifyKind(err error) Kind {
	if q, ok := err.(*qerr); ok {
		return q.kind
	}
	return ""
}

// Is reports whether err is a qerrors error of the given kind.
func Is(err error, kind Kind) bool {
	q, ok := err.(*qerr)
	return ok && q.kind == kind
}

// GrammarLoad returns a new GrammarLoadError: the compiled state table or
// rule metadata failed schema validation at startup. Fatal; callers
// should halt startup rather than attempt a parse.
func GrammarLoad(format string, a ...interface{}) error {
	return &qerr{kind: KindGrammarLoad, msg: fmt.Sprintf(format, a...)}
}

// WrapGrammarLoad is GrammarLoad but wraps an underlying cause (e.g. a
// JSON decode error).
func WrapGrammarLoad(cause error, format string, a ...interface{}) error {
	return &qerr{kind: KindGrammarLoad, msg: fmt.Sprintf(format, a...), wrap: cause}
}

// InvariantViolation returns a new InvariantViolation error: a node
// yielded contradictory sub shapes (a term-sequence with more than one
// non-deletion-caused descendant, a binary insertion, or similar). This
// indicates a grammar bug, not a user input problem; symbol names the
// offending grammar symbol.
func InvariantViolation(symbol string, format string, a ...interface{}) error {
	return &qerr{kind: KindInvariantViolation, msg: fmt.Sprintf("invariant violation at symbol %q: %s", symbol, fmt.Sprintf(format, a...))}
}

// NoParse returns a new NoParse error: the chart parser reached
// end-of-input without finding an accept state.
func NoParse() error {
	return &qerr{kind: KindNoParse, msg: "no parse: input was not accepted by the grammar"}
}

// NoLegalTree returns a new NoLegalTree error: the forest was non-empty
// but every candidate tree produced a contradictory semantic.
func NoLegalTree() error {
	return &qerr{kind: KindNoLegalTree, msg: "no legal tree: every candidate parse produced a contradictory semantic"}
}

// TimeoutExpired returns a new TimeoutExpired error: the caller's
// deadline was reached before k trees were found. This is not
// necessarily fatal to the caller; it is returned alongside whatever
// partial results were accumulated.
func TimeoutExpired() error {
	return &qerr{kind: KindTimeoutExpired, msg: "search deadline expired"}
}
