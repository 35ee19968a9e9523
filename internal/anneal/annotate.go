// Package anneal implements the heuristic-cost annotator and
// term-sequence flattener: a post-order, memoized walk of
// the packed forest that assigns every node an admissible lower-bound
// min-cost and, in the same pass, collapses purely-lexical term
// sequences into flattened terminal subs.
package anneal

import (
	"math"
	"sort"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/corvidic/corvid/internal/semantics"
)

// Annotate walks the forest rooted at start, assigning every node a
// MinCost and flattening term sequences in place. It is idempotent: a
// Node whose MinCostSet is already true is skipped ( "Annotation is
// idempotent").
func Annotate(start *chart.Node) error {
	a := &annotator{visiting: make(map[*chart.Node]bool)}
	return a.node(start)
}

type annotator struct {
	visiting map[*chart.Node]bool
}

func (a *annotator) node(n *chart.Node) error {
	if n.MinCostSet {
		return nil
	}
	if a.visiting[n] {
		return qerrors.InvariantViolation(n.Symbol, "node reached itself during annotation (grammar cycle)")
	}
	a.visiting[n] = true
	defer delete(a.visiting, n)

	var extra []*chart.Sub
	for _, sub := range n.Subs {
		if sub.IsTerminalLeaf() {
			sub.MinCost = sub.RuleProps.Cost
			sub.MinCostSet = true
			continue
		}

		if err := a.node(sub.Node); err != nil {
			return err
		}
		if sub.Next != nil {
			if err := a.node(sub.Next.Node); err != nil {
				return err
			}
		}
		childSum := sub.Node.MinCost
		if sub.Next != nil {
			childSum += sub.Next.Node.MinCost
		}

		alts := sub.Alternatives
		if len(alts) == 0 {
			alts = []grammar.RuleProps{sub.RuleProps}
		}
		origNode, origNext := sub.Node, sub.Next

		for i, rp := range alts {
			target := sub
			if i > 0 {
				target = &chart.Sub{Node: origNode, Next: copyNextSub(origNext), Size: sub.Size}
			}
			if err := resolveRuleProps(target, rp, rp.Cost+childSum); err != nil {
				return err
			}
			if i > 0 {
				extra = append(extra, target)
			}
		}
	}
	n.Subs = append(n.Subs, extra...)

	best := math.Inf(1)
	for _, sub := range n.Subs {
		if sub.MinCost < best {
			best = sub.MinCost
		}
	}
	n.MinCost = best
	n.MinCostSet = true
	sort.SliceStable(n.Subs, func(i, j int) bool { return n.Subs[i].MinCost < n.Subs[j].MinCost })
	return nil
}

func copyNextSub(next *chart.Sub) *chart.Sub {
	if next == nil {
		return nil
	}
	return &chart.Sub{Node: next.Node, Size: next.Size}
}

// resolveRuleProps applies s 2-3 for a single rule alternative
// rp of sub, given its precomputed total cost, and records the result
// (steps 2/3 may replace sub's shape with a flattened terminal form;
// step 5 always records MinCost).
func resolveRuleProps(sub *chart.Sub, rp grammar.RuleProps, cost float64) error {
	switch {
	case rp.RHSDoesNotProduceText:
		sub.RuleProps = grammar.RuleProps{
			Cost: cost,
			Text: rp.Text,
			Semantic: rp.Semantic,
			AcceptedTense: rp.AcceptedTense,
			PersonNumber: rp.PersonNumber,
		}
		sub.Flattened = true
		sub.Node, sub.Next = nil, nil
	case rp.IsTermSequence:
		if err := flattenTermSequence(sub, rp, cost); err != nil {
			return err
		}
	default:
		sub.RuleProps = rp
	}
	sub.MinCost = cost
	sub.MinCostSet = true
	return nil
}

// flattenTermSequence implements : dispatch a term-sequence
// rule by shape (plain sequence, substitution, or insertion) and replace
// sub's RuleProps with a merged terminal form, hiding its descendants
// from pfsearch.
func flattenTermSequence(sub *chart.Sub, rp grammar.RuleProps, cost float64) error {
	reps, err := representativeRuleProps(sub)
	if err != nil {
		return err
	}

	var merged grammar.RuleProps
	switch {
	case rp.IsInsertion():
		if sub.Next != nil {
			return qerrors.InvariantViolation(sub.Node.Symbol, "binary insertion term sequence")
		}
		desc := reps[0]
		idx := *rp.InsertedSymbolIndex
		var text grammar.Text
		if idx == 0 {
			text = append(append(grammar.Text{}, rp.Text...), desc.Text...)
		} else {
			text = append(append(grammar.Text{}, desc.Text...), rp.Text...)
		}
		merged = grammar.RuleProps{
			Cost: cost,
			Text: text,
			Semantic: firstNonNilSemantic(rp.Semantic, desc.Semantic),
			AcceptedTense: desc.AcceptedTense,
			PersonNumber: firstNonEmpty(desc.PersonNumber, rp.PersonNumber),
		}
	case len(rp.Text) > 0:
		// substitution: keep the rule's own text, but still surface the
		// matched descendants' tense/person-number so an ancestor's
		// accepted_tense/person_number checks still have something to
		// match against.
		tense, personNumber := "", ""
		for _, r := range reps {
			tense = firstNonEmpty(tense, r.AcceptedTense)
			personNumber = firstNonEmpty(personNumber, r.PersonNumber)
		}
		merged = grammar.RuleProps{
			Cost: cost,
			Text: rp.Text,
			Semantic: rp.Semantic,
			AcceptedTense: tense,
			PersonNumber: personNumber,
		}
	default:
		// plain sequence: merge every matched descendant's text in
		// order, inheriting tense/person-number/semantic.
		var text grammar.Text
		tense, personNumber := "", ""
		var sem *semantics.Semantic
		for _, r := range reps {
			text = append(text, r.Text...)
			tense = firstNonEmpty(tense, r.AcceptedTense)
			personNumber = firstNonEmpty(personNumber, r.PersonNumber)
			if sem == nil {
				sem = r.Semantic
			}
		}
		merged = grammar.RuleProps{
			Cost: cost,
			Text: text,
			Semantic: sem,
			AcceptedTense: tense,
			PersonNumber: personNumber,
		}
	}

	sub.RuleProps = merged
	sub.Flattened = true
	sub.Node, sub.Next = nil, nil
	return nil
}

// representativeRuleProps picks, for each matched child of sub, the
// cheapest descendant RuleProps (sub.Node's and, if binary,
// sub.Next.Node's). Both children are already fully annotated (and thus
// sorted ascending by MinCost) by the time a term sequence's own sub is
// resolved, since annotation is strictly post-order. Ambiguity among a
// child's alternatives is only legitimate when explained by deletion
//; anything else is a grammar error.
func representativeRuleProps(sub *chart.Sub) ([]grammar.RuleProps, error) {
	var reps []grammar.RuleProps
	for _, child := range []*chart.Node{sub.Node, nodeOf(sub.Next)} {
		if child == nil {
			continue
		}
		if len(child.Subs) > 1 && child.Size == 1 {
			return nil, qerrors.InvariantViolation(child.Symbol, "ambiguous term-sequence descendant of span 1 (not explained by deletion)")
		}
		if len(child.Subs) > 1 && child.MinCost < 1 {
			return nil, qerrors.InvariantViolation(child.Symbol, "ambiguous term-sequence descendant with sub-unit cost (not explained by deletion)")
		}
		reps = append(reps, child.Subs[0].RuleProps)
	}
	return reps, nil
}

func nodeOf(s *chart.Sub) *chart.Node {
	if s == nil {
		return nil
	}
	return s.Node
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNilSemantic(sems ...*semantics.Semantic) *semantics.Semantic {
	for _, s := range sems {
		if s != nil {
			return s
		}
	}
	return nil
}
