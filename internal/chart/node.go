// Package chart implements the GLR chart parser: it builds a packed
// parse forest over the precomputed shift/reduce state table in
// internal/grammar, from the terminal matches produced by internal/lex.
package chart

import "github.com/corvidic/corvid/internal/grammar"

// Node is a packed forest node: the tuple (Symbol, Size), where Size
// is the input token-span length. A Node is uniquely identified by
// (Symbol, Size) at a given start position; the parser dedupes within
// an end-position's node table (the packing step, add_sub).
type Node struct {
	Symbol string
	Size int

	// Subs holds every alternative derivation of this node, as
	// discovered by the parser. The list may grow as more reductions are
	// found; after annotation (internal/anneal) it is sorted by
	// ascending MinCost.
	Subs []*Sub

	// MinCost is the admissible lower-bound cost of the cheapest
	// complete subtree rooted at this node. Unset (MinCostSet false)
	// until internal/anneal's post-order pass visits it.
	MinCost float64
	MinCostSet bool
}

// Sub is one alternative derivation of a Node: a single child Node
// (for unary rules or terminal leaves), an optional second child wrapped
// in Next (for binary rules), the rule metadata that produced this
// alternative, and a lazily-filled MinCost.
//
// For a terminal leaf alternative (a direct lexical match, ), Node
// and Next are both nil and RuleProps is the matched terminal rule.
type Sub struct {
	Node *Node // first child, nil for a terminal leaf alternative
	Next *Sub // wrapper for the second child, nil unless this is binary

	// Size is this alternative's token span. For a binary Sub,
	// Size == Node.Size + Next.Node.Size.
	Size int

	RuleProps grammar.RuleProps

	// Alternatives holds every cost-ordered RuleProps this reduction
	// offered.
	// RuleProps is always Alternatives[0] (the cheapest) during parsing;
	// internal/anneal materializes the rest into sibling Subs during its
	// pass. Nil/len<=1 for non-insertion reductions and
	// all terminal leaves.
	Alternatives []grammar.RuleProps

	MinCost float64
	MinCostSet bool

	// Flattened marks that this Sub was replaced in place by
	// internal/anneal's term-sequence flattening or
	// rhs-does-not-produce-text collapse: its RuleProps is now a
	// terminal form and pfsearch must not descend into Node/Next.
	Flattened bool
}

// IsTerminalLeaf reports whether this Sub is a direct lexical match with
// no children (as opposed to a reduction, possibly already flattened).
func (s *Sub) IsTerminalLeaf() bool {
	return s.Node == nil && s.Next == nil
}

// IsBinary reports whether this Sub has a second child.
func (s *Sub) IsBinary() bool {
	return s.Next != nil
}

// newNode creates an empty Node for the given symbol and span.
func newNode(symbol string, size int) *Node {
	return &Node{Symbol: symbol, Size: size}
}
