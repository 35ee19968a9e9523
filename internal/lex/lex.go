// Package lex implements the tokenizer and terminal matcher: it
// lowercases and whitespace-splits a query, then matches literal
// n-grams, placeholder entities, and integer ranges against the
// grammar, expanding matches over runs of deletable tokens.
package lex

import (
	"strconv"
	"strings"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/semantics"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// Tokenize lowercases and whitespace-splits a raw query into tokens.
func Tokenize(query string) []string {
	lower := lowerCaser.String(query)
	return strings.Fields(lower)
}

// MatchTerminals is 's match_terminals: it returns, for each
// end-token position 1..len(tokens), the terminal matches ending there.
// matches[0] is always empty. If allDeletable is true, every token
// position is treated as deletable regardless of the grammar's
// configured deletable set -- the driver's retry path after an initial
// qerrors.NoParse.
func MatchTerminals(g *grammar.Grammar, tokens []string, allDeletable bool) [][]chart.TerminalMatch {
	n := len(tokens)
	isDeletable := make([]bool, n)
	for i, t := range tokens {
		isDeletable[i] = allDeletable || g.IsDeletable(t)
	}

	byPos := make([]map[int][]*chart.Node, n+1)
	for i := range byPos {
		byPos[i] = make(map[int][]*chart.Node)
	}

	intArgMemo := make(map[string]semantics.Semantic)
	entityArgMemo := make(map[string]semantics.Semantic)

	add := func(p, start int, node *chart.Node) {
		byPos[p][start] = append(byPos[p][start], node)
		expandDeletions(isDeletable, start, p, node, byPos)
	}

	for i := 0; i < n; i++ {
		var ngramToks []string
		for j := i; j < n; j++ {
			ngramToks = append(ngramToks, tokens[j])
			ngram := strings.Join(ngramToks, " ")
			p := j + 1
			size := p - i

			if ents, ok := g.Entities[ngram]; ok {
				for _, m := range ents {
					arg, cached := entityArgMemo[m.ID]
					if !cached {
						arg = semantics.Arg(m.ID)
						entityArgMemo[m.ID] = arg
					}
					argCopy := arg
					rp := grammar.RuleProps{
						Semantic: &argCopy,
						Text: grammar.Text{{Literal: m.Text}},
					}
					node := chart.NewTerminalNode(m.Category, size, []grammar.RuleProps{rp})
					add(p, i, node)
				}
			}

			if j == i {
				if val, ok := parseInteger(tokens[i]); ok {
					for _, is := range g.IntSymbols {
						if val < is.Min {
							break
						}
						if val > is.Max {
							continue
						}
						key := strconv.Itoa(val)
						arg, cached := intArgMemo[key]
						if !cached {
							arg = semantics.Arg(key)
							intArgMemo[key] = arg
						}
						argCopy := arg
						rp := grammar.RuleProps{
							Semantic: &argCopy,
							Text: grammar.Text{{Literal: key}},
						}
						node := chart.NewTerminalNode(is.Name, 1, []grammar.RuleProps{rp})
						add(p, i, node)
					}
				}
			}

			if sym, ok := g.Symbol(ngram); ok && sym.IsTerminal && !sym.IsPlaceholder && len(sym.TerminalRules) > 0 {
				node := chart.NewTerminalNode(sym.Name, size, sym.TerminalRules)
				add(p, i, node)
			}
		}
	}

	out := make([][]chart.TerminalMatch, n+1)
	for p := 1; p <= n; p++ {
		for start, nodes := range byPos[p] {
			out[p] = append(out[p], chart.TerminalMatch{Start: start, Nodes: nodes})
		}
	}
	return out
}

// parseInteger reports whether tok is a base-10 integer literal,
// returning its value. Tokens with any non-digit content (including a
// leading sign) do not parse -- the grammar's integer symbols model
// unsigned quantities like counts and years.
func parseInteger(tok string) (int, bool) {
	if tok == "" {
		return 0, false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return v, true
}

// expandDeletions implements the deletion expansion: for the
// just-emitted node starting at start and ending at p, walk backward
// over a maximal run of deletable token positions immediately preceding
// start, and synthesize one enlarged-span copy per run length, each with
// cost incremented by the number of tokens it swallows.
func expandDeletions(isDeletable []bool, start, p int, node *chart.Node, byPos []map[int][]*chart.Node) {
	k := 0
	for idx := start - 1; idx >= 0 && isDeletable[idx]; idx-- {
		k++
	}
	for d := 1; d <= k; d++ {
		newStart := start - d
		newSize := node.Size + d
		clone := &chart.Node{Symbol: node.Symbol, Size: newSize}
		for _, s := range node.Subs {
			rp := s.RuleProps
			rp.Cost += float64(d)
			clone.Subs = append(clone.Subs, &chart.Sub{Size: newSize, RuleProps: rp})
		}
		byPos[p][newStart] = append(byPos[p][newStart], clone)
	}
}
