// Package pfsearch implements the A* k-best enumerator: it walks the
// annotated packed forest with a min-priority queue keyed by
// cost_so_far + remaining_min_cost, conjugating display text through an
// inherited context stack, building up the semantic tree as rule-level
// reductions complete, and deduplicating completed trees by canonical
// semantic string.
package pfsearch

import (
	"container/heap"
	"context"
	"strings"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/corvidic/corvid/internal/semantics"
	"github.com/corvidic/corvid/internal/util"
)

// Result is one emitted query result: rendered display text,
// the reduced semantic tree, and the total rule cost that produced it.
type Result struct {
	Text string
	Semantic semantics.Semantic
	Cost float64
}

// Enumerate runs the A* search over the forest rooted at start, emitting
// up to k results in non-decreasing cost order with no two results
// sharing a canonical semantic string. It returns
// partial=true if ctx was cancelled or its deadline expired before k
// results were found or the queue emptied, in which case err is
// qerrors.TimeoutExpired and results holds whatever was accumulated so
// far.
func Enumerate(ctx context.Context, start *chart.Node, k int) (results []Result, partial bool, err error) {
	pq := &pathQueue{newInitialPath(start)}
	heap.Init(pq)

	seen := util.NewKeySet[string]()

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			return results, true, qerrors.TimeoutExpired()
		default:
		}

		p := heap.Pop(pq).(*path)

		if len(p.pending) == 0 {
			sem := p.rootSemantic()
			key := semantics.CanonicalString(sem)
			if seen.Has(key) {
				continue
			}
			seen.Add(key)
			results = append(results, Result{
				Text: strings.Join(p.textFrags, " "),
				Semantic: sem,
				Cost: p.costSoFar,
			})
			if len(results) >= k {
				return results, false, nil
			}
			continue
		}

		top := p.pending[len(p.pending)-1]
		p.pending = p.pending[:len(p.pending)-1]

		switch top.kind {
		case frameClose:
			if err := p.closeLevel(); err != nil {
				// contradictory semantic: prune this path silently (,
				// "per-path semantic conflicts ... are not errors").
				continue
			}
			heap.Push(pq, p)
		case frameExpand:
			for _, alt := range top.node.Subs {
				succ := p.fork()
				if err := succ.expand(alt); err != nil {
					continue
				}
				heap.Push(pq, succ)
			}
		}
	}
	return results, partial, nil
}

// frameKind distinguishes the two kinds of work item a path's pending
// stack may hold.
type frameKind int

const (
	// frameExpand names a still-ambiguous Node: expanding it forks one
	// successor path per alternative Sub.
	frameExpand frameKind = iota
	// frameClose fires once every child pushed alongside it has been
	// fully processed, triggering semantic reduction and context pop.
	frameClose
)

type frame struct {
	kind frameKind
	node *chart.Node
}

// conjContext is one inherited conjugation context frame (,
// ): grammatical_form and
// accepted_tense/person_number introduced by an ancestor rule, consumed
// by any inflection text rendered beneath it.
type conjContext struct {
	GrammaticalForm string
	AcceptedTense string
	PersonNumber string
}

// level is the in-progress semantic builder for one currently-open
// ancestor sub. sem is nil for a structural rule with no LHS semantic of
// its own, in which case its single collected arg (if any) passes
// through unchanged to the parent level.
type level struct {
	sem *semantics.Semantic
	args []semantics.Semantic
}

// path is one A* search state: the stack of work remaining, the
// rendered text emitted so far, the inherited conjugation contexts of
// every currently-open ancestor, the matching stack of semantic
// builders, and the cost accumulated so far.
type path struct {
	pending []frame
	textFrags []string
	ctxStack []conjContext
	levels []*level
	costSoFar float64
}

func newInitialPath(start *chart.Node) *path {
	return &path{
		pending: []frame{{kind: frameExpand, node: start}},
		levels: []*level{{}}, // root collector: transparent, receives the final semantic as its sole arg
	}
}

// priority is cost_so_far + remaining_min_cost(pending): the admissible
// A* key.
func (p *path) priority() float64 {
	total := p.costSoFar
	for _, f := range p.pending {
		if f.kind == frameExpand {
			total += f.node.MinCost
		}
	}
	return total
}

func (p *path) fork() *path {
	np := &path{
		pending: append([]frame(nil), p.pending...),
		textFrags: append([]string(nil), p.textFrags...),
		ctxStack: append([]conjContext(nil), p.ctxStack...),
		levels: make([]*level, len(p.levels)),
		costSoFar: p.costSoFar,
	}
	for i, lv := range p.levels {
		np.levels[i] = &level{sem: lv.sem, args: append([]semantics.Semantic(nil), lv.args...)}
	}
	return np
}

func (p *path) rootSemantic() semantics.Semantic {
	root := p.levels[0]
	if len(root.args) == 0 {
		return semantics.Semantic{}
	}
	return root.args[0]
}

// expand commits to one alternative Sub of whatever Node a frameExpand
// popped, dispatching by 's terminal/nonterminal cases.
func (p *path) expand(alt *chart.Sub) error {
	if alt.IsTerminalLeaf() || alt.Flattened {
		return p.expandTerminal(alt.RuleProps)
	}
	return p.expandNonterminal(alt)
}

func (p *path) expandTerminal(rp grammar.RuleProps) error {
	ctx := p.topContext()
	for _, elem := range rp.Text {
		if elem.IsInflection() {
			p.textFrags = append(p.textFrags, resolveForm(*elem.Inflection, ctx))
		} else {
			p.textFrags = append(p.textFrags, elem.Literal)
		}
	}
	if rp.PersonNumber != "" && len(p.ctxStack) > 0 {
		// A leaf may set person_number for its not-yet-processed
		// siblings under the same parent rule to consume (e.g. a
		// subject pronoun fixing the verb's conjugation).
		p.ctxStack[len(p.ctxStack)-1].PersonNumber = rp.PersonNumber
	}
	p.costSoFar += rp.Cost
	if rp.Semantic != nil {
		return appendArg(p.levels[len(p.levels)-1], *rp.Semantic)
	}
	return nil
}

func (p *path) expandNonterminal(alt *chart.Sub) error {
	ctx := p.topContext()
	if alt.RuleProps.GrammaticalForm != "" {
		ctx.GrammaticalForm = alt.RuleProps.GrammaticalForm
	}
	if alt.RuleProps.AcceptedTense != "" {
		ctx.AcceptedTense = alt.RuleProps.AcceptedTense
	}
	if alt.RuleProps.PersonNumber != "" {
		ctx.PersonNumber = alt.RuleProps.PersonNumber
	}
	p.ctxStack = append(p.ctxStack, ctx)

	var sem *semantics.Semantic
	if alt.RuleProps.Semantic != nil {
		s := *alt.RuleProps.Semantic
		sem = &s
	}
	p.levels = append(p.levels, &level{sem: sem})
	p.costSoFar += alt.RuleProps.Cost

	p.pending = append(p.pending, frame{kind: frameClose})
	if alt.Next != nil {
		p.pending = append(p.pending, frame{kind: frameExpand, node: alt.Next.Node})
	}
	p.pending = append(p.pending, frame{kind: frameExpand, node: alt.Node})
	return nil
}

// closeLevel finalizes the innermost open level: reduces its semantic
// (if it has one and has collected enough args) or passes its sole arg
// through (if structural), then feeds the result to the parent level as
// one more argument -- via MergeSibling, so a repeated or
// forbids-multiple clash surfaces as a pruned path ( "Semantic
// reduction").
func (p *path) closeLevel() error {
	lv := p.levels[len(p.levels)-1]
	p.levels = p.levels[:len(p.levels)-1]
	p.ctxStack = p.ctxStack[:len(p.ctxStack)-1]

	var result *semantics.Semantic
	if lv.sem == nil {
		if len(lv.args) > 0 {
			result = &lv.args[0]
		}
	} else {
		s := *lv.sem
		for _, a := range lv.args {
			s = s.WithArg(a)
		}
		if s.Eligible() {
			s = s.Reduce()
		}
		result = &s
	}
	if result == nil {
		return nil
	}
	return appendArg(p.levels[len(p.levels)-1], *result)
}

func (p *path) topContext() conjContext {
	if len(p.ctxStack) == 0 {
		return conjContext{}
	}
	return p.ctxStack[len(p.ctxStack)-1]
}

// appendArg adds child to lv's collected arguments, merging with an
// existing same-named argument via semantics.MergeSibling rather than
// appending a duplicate positional slot.
func appendArg(lv *level, child semantics.Semantic) error {
	for i, existing := range lv.args {
		if existing.Name == child.Name {
			merged, err := semantics.MergeSibling(existing, child)
			if err != nil {
				return err
			}
			lv.args[i] = merged
			return nil
		}
	}
	lv.args = append(lv.args, child)
	return nil
}

// resolveForm picks the literal form of an inflection object per 
// "Conjugation": grammatical_form deterministically overrides, then
// person_number, then accepted_tense, falling back to the grammar's
// mandated default.
func resolveForm(inf grammar.InflectionForms, ctx conjContext) string {
	for _, key := range []string{ctx.GrammaticalForm, personNumberFormKey(ctx.PersonNumber), ctx.AcceptedTense} {
		if key == "" {
			continue
		}
		if t, ok := inf.Forms[key]; ok {
			return t
		}
	}
	return inf.Forms["default"]
}

func personNumberFormKey(pn string) string {
	switch pn {
	case "one-singular":
		return "oneSingular"
	case "three-singular":
		return "threeSingular"
	case "plural":
		return "plural"
	default:
		return ""
	}
}

// pathQueue is a container/heap min-priority queue of paths, ordered by
// ascending priority().
type pathQueue []*path

func (q pathQueue) Len() int { return len(q) }
func (q pathQueue) Less(i, j int) bool { return q[i].priority() < q[j].priority() }
func (q pathQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(*path)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
