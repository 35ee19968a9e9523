package render

import (
	"strings"
	"testing"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleForest() *chart.Node {
	left := chart.NewTerminalNode("det", 1, []grammar.RuleProps{{Cost: 0, Text: grammar.Text{{Literal: "the"}}}})
	right := chart.NewTerminalNode("noun", 1, []grammar.RuleProps{{Cost: 0, Text: grammar.Text{{Literal: "repos"}}}})
	left.MinCost, left.MinCostSet = 0, true
	right.MinCost, right.MinCostSet = 0, true

	top := &chart.Node{
		Symbol: "np",
		Size:   2,
		Subs: []*chart.Sub{{
			Node:      left,
			Next:      &chart.Sub{Node: right, Size: 1},
			Size:      2,
			RuleProps: grammar.RuleProps{Cost: 1},
		}},
	}
	top.MinCost, top.MinCostSet = 1, true
	return top
}

func Test_Tree(t *testing.T) {
	assert := assert.New(t)
	out := Tree(sampleForest(), false, false)
	assert.Contains(out, "np")
	assert.Contains(out, "det")
	assert.Contains(out, "noun")
}

func Test_Tree_WithCostsAndRanges(t *testing.T) {
	assert := assert.New(t)
	out := Tree(sampleForest(), true, true)
	assert.Contains(out, "[cost=1.00]")
	assert.Contains(out, "[0,2)")
}

func Test_Forest_RevealsAllAlternatives(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	leaf := chart.NewTerminalNode("x", 1, []grammar.RuleProps{{Cost: 0}})
	top := &chart.Node{
		Symbol: "ambiguous",
		Size:   1,
		Subs: []*chart.Sub{
			{Node: leaf, Size: 1, RuleProps: grammar.RuleProps{Cost: 1}},
			{Size: 1, RuleProps: grammar.RuleProps{Cost: 2, Text: grammar.Text{{Literal: "y"}}}},
		},
	}

	out := Forest(top)
	require.NotEmpty(out)
	assert.Contains(out, "a0")
	assert.Contains(out, "a1")
	assert.Contains(out, `"y"`)
}

func Test_ForestGraph_ListsEdges(t *testing.T) {
	assert := assert.New(t)
	out := ForestGraph(sampleForest())
	lines := strings.Split(out, "\n")
	assert.Len(lines, 2)
	assert.Contains(out, "np/2")
}

func Test_Stack_ListsDistinctNodes(t *testing.T) {
	assert := assert.New(t)
	out := Stack(sampleForest())
	assert.Contains(out, "SYMBOL")
	assert.Contains(out, "np")
	assert.Contains(out, "det")
	assert.Contains(out, "noun")
}
