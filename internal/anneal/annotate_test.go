package anneal

import (
	"testing"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaf(symbol string, cost float64, text string) *chart.Node {
	return chart.NewTerminalNode(symbol, 1, []grammar.RuleProps{{Cost: cost, Text: grammar.Text{{Literal: text}}}})
}

func Test_Annotate_TerminalLeaf(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	n := leaf("a", 2, "a")
	require.NoError(Annotate(n))
	assert.True(n.MinCostSet)
	assert.Equal(2.0, n.MinCost)
	assert.Equal(2.0, n.Subs[0].MinCost)
}

func Test_Annotate_Idempotent(t *testing.T) {
	assert := assert.New(t)
	n := leaf("a", 2, "a")
	require.NoError(t, Annotate(n))
	n.Subs[0].RuleProps.Cost = 999 // mutate after first pass
	require.NoError(t, Annotate(n)) // second pass must be a no-op (MinCostSet already true)
	assert.Equal(2.0, n.MinCost, "re-annotating must not change an already-annotated node")
}

func Test_Annotate_RHSDoesNotProduceTextCollapsesToTerminalForm(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	child := leaf("kw", 1, "ignored-child-text")
	parent := &chart.Node{
		Symbol: "glue",
		Size: 1,
		Subs: []*chart.Sub{{
			Node: child,
			Size: 1,
			RuleProps: grammar.RuleProps{
				Cost: 3,
				RHSDoesNotProduceText: true,
				Text: grammar.Text{{Literal: "fixed"}},
			},
		}},
	}

	require.NoError(Annotate(parent))
	sub := parent.Subs[0]
	assert.True(sub.Flattened)
	assert.Nil(sub.Node)
	assert.Equal(4.0, sub.RuleProps.Cost) // 3 (rule) + 1 (child min cost)
	assert.Equal("fixed", sub.RuleProps.Text[0].Literal)
	assert.Equal(4.0, parent.MinCost)
}

func Test_Annotate_PlainTermSequenceMergesChildText(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	left := leaf("det", 0, "the")
	right := leaf("noun", 0, "repos")
	parent := &chart.Node{
		Symbol: "np",
		Size: 2,
		Subs: []*chart.Sub{{
			Node: left,
			Next: &chart.Sub{Node: right, Size: 1},
			Size: 2,
			RuleProps: grammar.RuleProps{
				Cost: 1,
				IsTermSequence: true,
			},
		}},
	}

	require.NoError(Annotate(parent))
	sub := parent.Subs[0]
	require.True(sub.Flattened)
	require.Len(sub.RuleProps.Text, 2)
	assert.Equal("the", sub.RuleProps.Text[0].Literal)
	assert.Equal("repos", sub.RuleProps.Text[1].Literal)
	assert.Equal(1.0, sub.RuleProps.Cost)
}

func Test_Annotate_InsertionTermSequence(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	idx0 := 0
	child := leaf("noun", 0, "cat")
	parent := &chart.Node{
		Symbol: "np",
		Size: 1,
		Subs: []*chart.Sub{{
			Node: child,
			Size: 1,
			RuleProps: grammar.RuleProps{
				Cost: 0.5,
				IsTermSequence: true,
				InsertedSymbolIndex: &idx0,
				Text: grammar.Text{{Literal: "a"}},
			},
		}},
	}

	require.NoError(Annotate(parent))
	sub := parent.Subs[0]
	require.True(sub.Flattened)
	require.Len(sub.RuleProps.Text, 2)
	assert.Equal("a", sub.RuleProps.Text[0].Literal)
	assert.Equal("cat", sub.RuleProps.Text[1].Literal)
}

func Test_Annotate_BinaryInsertionIsInvariantViolation(t *testing.T) {
	idx0 := 0
	left := leaf("a", 0, "x")
	right := leaf("b", 0, "y")
	parent := &chart.Node{
		Symbol: "bad",
		Size: 2,
		Subs: []*chart.Sub{{
			Node: left,
			Next: &chart.Sub{Node: right, Size: 1},
			Size: 2,
			RuleProps: grammar.RuleProps{
				IsTermSequence: true,
				InsertedSymbolIndex: &idx0,
			},
		}},
	}

	err := Annotate(parent)
	assert.Equal(t, qerrors.KindInvariantViolation, qerrors.ClassifyKind(err))
}

func Test_Annotate_AmbiguousSpanOneDescendantIsInvariantViolation(t *testing.T) {
	// Two alternatives of span 1 with no deletion to explain them is a
	// grammar bug when a term sequence depends on this child.
	ambiguous := &chart.Node{
		Symbol: "dup",
		Size: 1,
		Subs: []*chart.Sub{
			{Size: 1, RuleProps: grammar.RuleProps{Cost: 0, Text: grammar.Text{{Literal: "x"}}}},
			{Size: 1, RuleProps: grammar.RuleProps{Cost: 0, Text: grammar.Text{{Literal: "y"}}}},
		},
	}
	parent := &chart.Node{
		Symbol: "np",
		Size: 1,
		Subs: []*chart.Sub{{
			Node: ambiguous,
			Size: 1,
			RuleProps: grammar.RuleProps{IsTermSequence: true},
		}},
	}

	err := Annotate(parent)
	assert.Equal(t, qerrors.KindInvariantViolation, qerrors.ClassifyKind(err))
}

func Test_Annotate_MaterializesInsertionAlternativesAsSiblings(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	idx0 := 0
	child := leaf("noun", 0, "cat")
	alts := []grammar.RuleProps{
		{Cost: 1, IsTermSequence: true, InsertedSymbolIndex: &idx0, Text: grammar.Text{{Literal: "a"}}},
		{Cost: 2, IsTermSequence: true, InsertedSymbolIndex: &idx0, Text: grammar.Text{{Literal: "an"}}},
	}
	parent := &chart.Node{
		Symbol: "np",
		Size: 1,
		Subs: []*chart.Sub{{
			Node: child,
			Size: 1,
			RuleProps: alts[0],
			Alternatives: alts,
		}},
	}

	require.NoError(Annotate(parent))
	require.Len(parent.Subs, 2)
	// sorted ascending by min cost after annotation.
	assert.Equal(1.0, parent.Subs[0].MinCost)
	assert.Equal(2.0, parent.Subs[1].MinCost)
	assert.Equal("a", parent.Subs[0].RuleProps.Text[0].Literal)
	assert.Equal("an", parent.Subs[1].RuleProps.Text[0].Literal)
	assert.Equal(1.0, parent.MinCost)
}

func Test_Annotate_CycleDetected(t *testing.T) {
	n := &chart.Node{Symbol: "cyclic", Size: 1}
	n.Subs = []*chart.Sub{{Node: n, Size: 1, RuleProps: grammar.RuleProps{Cost: 1}}}

	err := Annotate(n)
	assert.Equal(t, qerrors.KindInvariantViolation, qerrors.ClassifyKind(err))
}
