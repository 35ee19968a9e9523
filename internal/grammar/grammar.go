// Package grammar holds the read-only, process-wide data model: the
// precomputed shift/reduce state table, terminal/placeholder symbols,
// entity and integer lookup tables, and the deletable-token set. It is
// loaded once at startup from the compiled grammar JSON document and
// never mutated afterward; any number of concurrent parses may share
// one *Grammar.
package grammar

import "github.com/corvidic/corvid/internal/semantics"

// Shift is one entry in a State's shift table: on symbol, move to the
// state at index NextState.
type Shift struct {
	Symbol string
	NextState int
}

// Reduction is one entry in a State's reduction table. RuleProps holds
// one or more alternatives sorted by ascending Cost; more than one
// alternative only occurs for insertion rules.
type Reduction struct {
	LHS string
	RHSArity int
	IsBinary bool
	IsTransposition bool
	RuleProps []RuleProps
}

// Cheapest returns the lowest-cost alternative of the reduction, which is
// always RuleProps[0] given the sorted invariant.
func (r Reduction) Cheapest() RuleProps {
	return r.RuleProps[0]
}

// State is one entry in the precomputed shift/reduce table.
type State struct {
	Shifts []Shift
	Reductions []Reduction
	IsAccept bool
}

// ShiftOn returns the Shift for the given symbol in this state, if any.
func (s State) ShiftOn(symbol string) (Shift, bool) {
	for _, sh := range s.Shifts {
		if sh.Symbol == symbol {
			return sh, true
		}
	}
	return Shift{}, false
}

// InflectionForms is a structured display text whose concrete surface
// form is chosen at render time from grammatical properties (, 
// "Conjugation"). Forms maps a form name (e.g. "past", "presentPlural",
// "default") to its literal text.
type InflectionForms struct {
	Forms map[string]string
}

// Resolve returns the literal text for the named form, falling back to
// "default" if the requested form is absent, per the grammar invariant
// that every inflection object defines a default.
func (f InflectionForms) Resolve(form string) string {
	if t, ok := f.Forms[form]; ok {
		return t
	}
	return f.Forms["default"]
}

// TextElem is one element of an ordered Text: either a literal string or
// an inflection object.
type TextElem struct {
	Literal string
	Inflection *InflectionForms
}

// IsInflection reports whether this element must be conjugated at render
// time rather than emitted verbatim.
func (e TextElem) IsInflection() bool {
	return e.Inflection != nil
}

// Text is the ordered display-text payload of a RuleProps: a literal
// string, a single inflection object, or an ordered list mixing the two
//.
type Text []TextElem

// RuleProps is the per-rule metadata attached to a terminal rule or a
// reduction alternative.
type RuleProps struct {
	Cost float64

	// Semantic is the LHS semantic template this rule contributes, if
	// any. Nil for rules that carry no independent meaning (pure
	// term-sequence glue, stop words).
	Semantic *semantics.Semantic

	// Text is this rule's display-text contribution, if any.
	Text Text

	// InsertedSymbolIndex is 0 or 1 marking an insertion rule (the
	// position, among the rule's matched children, that this rule's Text
	// is inserted relative to); nil when the rule is not an insertion.
	InsertedSymbolIndex *int

	// GrammaticalForm, if set, deterministically selects a conjugation
	// form on text produced by the immediate children of the rule this
	// RuleProps belongs to.
	GrammaticalForm string

	// AcceptedTense, if set, matches the tense the speaker actually used
	// in the input without otherwise forcing a form.
	AcceptedTense string

	// PersonNumber, if set, selects a person/number conjugation form.
	PersonNumber string

	IsTermSequence bool
	RHSDoesNotProduceText bool
	IsTransposition bool
	IsPlaceholder bool
}

// IsInsertion reports whether this RuleProps marks an insertion rule.
func (rp RuleProps) IsInsertion() bool {
	return rp.InsertedSymbolIndex != nil
}

// Symbol is a grammar terminal or nonterminal. Only terminals carry
// TerminalRules; only placeholders carry integer-range bounds.
type Symbol struct {
	Name string
	IsTerminal bool
	IsPlaceholder bool
	IsIntegerRange bool
	IntMin, IntMax int
	TerminalRules []RuleProps
}

// EntityMatch is one entity a literal n-gram may resolve to.
type EntityMatch struct {
	Category string
	ID string
	Text string // canonical display text, which may differ in casing from the input
}

// IntSymbol is one integer-range placeholder symbol. The Grammar's
// IntSymbols slice is sorted by (Min, Max) to let the tokenizer early-exit
// a scan once a candidate integer is smaller than Min.
type IntSymbol struct {
	Name string
	Min, Max int
}

// Grammar is the complete, read-only, process-wide parse table and
// lexical data loaded at startup. It is safe for concurrent use by
// any number of parses; no parse may mutate it.
type Grammar struct {
	StartSymbol string
	States []State
	Symbols map[string]Symbol

	// Entities maps a lowercase n-gram to the entities it may resolve
	// to.
	Entities map[string][]EntityMatch

	// IntSymbols is sorted by (Min, Max).
	IntSymbols []IntSymbol

	// Deletables is the set of lowercase tokens that may be skipped by
	// the parser at a cost of 1 per deletion.
	Deletables map[string]bool
}

// Symbol looks up a symbol by name, returning ok=false if undefined.
// Load does not check symbol references, and internal/lex calls this
// with every candidate n-gram, so a miss is routine.
func (g *Grammar) Symbol(name string) (Symbol, bool) {
	s, ok := g.Symbols[name]
	return s, ok
}

// IsDeletable reports whether the lowercase token tok may be deleted.
func (g *Grammar) IsDeletable(tok string) bool {
	return g.Deletables[tok]
}
