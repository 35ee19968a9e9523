package chart

import "github.com/corvidic/corvid/internal/grammar"

// TerminalMatch is one span of terminal nodes recognized by
// internal/lex ending at some position, starting at Start.
type TerminalMatch struct {
	Start int
	Nodes []*Node
}

// NewTerminalNode builds a fresh leaf Node for a terminal symbol matched
// over a token span, with one Sub per matching rule alternative. This is
// exported for internal/lex, which is the only other package that needs
// to construct raw terminal Nodes.
func NewTerminalNode(symbol string, size int, rules []grammar.RuleProps) *Node {
	n := newNode(symbol, size)
	for _, r := range rules {
		n.Subs = append(n.Subs, &Sub{
			Size: size,
			RuleProps: r,
		})
	}
	return n
}
