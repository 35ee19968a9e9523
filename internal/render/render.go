// Package render produces the human-readable debug dumps requested by
// the query-driver's trees/parseStack/parseForest/parseForestGraph
// options: an indented outline of the cheapest derivation, a full
// ambiguity-revealing outline of every alternative in the packed
// forest, an edge-list view of the same forest, and a table of every
// distinct node reached by the parse.
package render

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/corvidic/corvid/internal/chart"
	"github.com/corvidic/corvid/internal/grammar"
)

const (
	levelEmpty         = "        "
	levelOngoing       = "  |     "
	levelPrefix        = "  |%s: "
	levelPrefixLast    = `  \%s: `
	levelPrefixPadChar = '-'
	levelPrefixPadLen  = 3
)

func makePrefix(msg string) string {
	for len([]rune(msg)) < levelPrefixPadLen {
		msg = string(levelPrefixPadChar) + msg
	}
	return fmt.Sprintf(levelPrefix, msg)
}

func makePrefixLast(msg string) string {
	for len([]rune(msg)) < levelPrefixPadLen {
		msg = string(levelPrefixPadChar) + msg
	}
	return fmt.Sprintf(levelPrefixLast, msg)
}

// Options selects which dumps Dump produces, mirroring the query-driver
// interface's debug options.
type Options struct {
	Trees            bool
	TreeNodeCosts    bool
	TreeTokenRanges  bool
	ParseStack       bool
	ParseForest      bool
	ParseForestGraph bool
}

// Dumps holds the rendered text of every dump Options requested. A
// field is empty if its corresponding option was false.
type Dumps struct {
	Trees            string
	ParseForest      string
	ParseForestGraph string
	ParseStack       string
}

// Dump renders every dump opts requests for the annotated forest rooted
// at start.
func Dump(start *chart.Node, opts Options) Dumps {
	var d Dumps
	if opts.Trees {
		d.Trees = Tree(start, opts.TreeNodeCosts, opts.TreeTokenRanges)
	}
	if opts.ParseForest {
		d.ParseForest = Forest(start)
	}
	if opts.ParseForestGraph {
		d.ParseForestGraph = ForestGraph(start)
	}
	if opts.ParseStack {
		d.ParseStack = Stack(start)
	}
	return d
}

// Tree renders the single cheapest derivation rooted at n -- the tree
// pfsearch would emit first -- as an indented outline, one line per
// node. After annotation each Node's Subs are sorted ascending by
// MinCost, so Subs[0] is always this derivation.
func Tree(n *chart.Node, nodeCosts, tokenRanges bool) string {
	return treeLine(n, 0, "", "", nodeCosts, tokenRanges)
}

func treeLine(n *chart.Node, pos int, firstPrefix, contPrefix string, nodeCosts, tokenRanges bool) string {
	var sb strings.Builder
	sb.WriteString(firstPrefix)
	sb.WriteString(nodeLabel(n, pos, nodeCosts, tokenRanges))

	if len(n.Subs) == 0 {
		return sb.String()
	}
	sub := n.Subs[0]
	if sub.IsTerminalLeaf() || sub.Flattened {
		sb.WriteString(fmt.Sprintf(" = %q", textOf(sub.RuleProps.Text)))
		return sb.String()
	}

	var children []*chart.Node
	var childPos []int
	children = append(children, sub.Node)
	childPos = append(childPos, pos)
	if sub.Next != nil {
		children = append(children, sub.Next.Node)
		childPos = append(childPos, pos+sub.Node.Size)
	}

	for i, c := range children {
		sb.WriteRune('\n')
		var fp, cp string
		if i+1 < len(children) {
			fp = contPrefix + makePrefix("")
			cp = contPrefix + levelOngoing
		} else {
			fp = contPrefix + makePrefixLast("")
			cp = contPrefix + levelEmpty
		}
		sb.WriteString(treeLine(c, childPos[i], fp, cp, nodeCosts, tokenRanges))
	}
	return sb.String()
}

func nodeLabel(n *chart.Node, pos int, nodeCosts, tokenRanges bool) string {
	label := n.Symbol
	if nodeCosts {
		label += fmt.Sprintf(" [cost=%.2f]", n.MinCost)
	}
	if tokenRanges {
		label += fmt.Sprintf(" [%d,%d)", pos, pos+n.Size)
	}
	return label
}

// Forest renders every alternative derivation reachable from n, not
// just the cheapest, revealing the ambiguity the parser packed. It does
// not memoize shared sub-nodes, so a heavily ambiguous forest will print
// a shared node once per path that reaches it.
func Forest(n *chart.Node) string {
	return forestLine(n, "", "")
}

func forestLine(n *chart.Node, firstPrefix, contPrefix string) string {
	var sb strings.Builder
	sb.WriteString(firstPrefix)
	sb.WriteString(fmt.Sprintf("%s/%d", n.Symbol, n.Size))
	for i, sub := range n.Subs {
		sb.WriteRune('\n')
		label := fmt.Sprintf("a%d", i)
		var fp, cp string
		if i+1 < len(n.Subs) {
			fp = contPrefix + makePrefix(label)
			cp = contPrefix + levelOngoing
		} else {
			fp = contPrefix + makePrefixLast(label)
			cp = contPrefix + levelEmpty
		}
		sb.WriteString(subLine(sub, fp, cp))
	}
	return sb.String()
}

func subLine(sub *chart.Sub, firstPrefix, contPrefix string) string {
	var sb strings.Builder
	sb.WriteString(firstPrefix)
	if sub.IsTerminalLeaf() || sub.Flattened {
		sb.WriteString(fmt.Sprintf("(TEXT %q cost=%.2f)", textOf(sub.RuleProps.Text), sub.RuleProps.Cost))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("(cost=%.2f)", sub.RuleProps.Cost))

	var children []*chart.Node
	children = append(children, sub.Node)
	if sub.Next != nil {
		children = append(children, sub.Next.Node)
	}
	for i, c := range children {
		sb.WriteRune('\n')
		var fp, cp string
		if i+1 < len(children) {
			fp = contPrefix + makePrefix("")
			cp = contPrefix + levelOngoing
		} else {
			fp = contPrefix + makePrefixLast("")
			cp = contPrefix + levelEmpty
		}
		sb.WriteString(forestLine(c, fp, cp))
	}
	return sb.String()
}

func textOf(t grammar.Text) string {
	parts := make([]string, len(t))
	for i, e := range t {
		if e.IsInflection() {
			parts[i] = "<" + e.Inflection.Resolve("default") + ">"
		} else {
			parts[i] = e.Literal
		}
	}
	return strings.Join(parts, " ")
}

// ForestGraph renders the same forest as Forest but as a flat edge
// list, one "parent -> child [alt=i]" line per Sub->child edge and one
// `node -> "text" [alt=i]` line per terminal or flattened alternative,
// with nodes numbered in first-visit order so the output stays stable
// across runs.
func ForestGraph(start *chart.Node) string {
	ids := map[*chart.Node]int{}
	var order []*chart.Node
	id := func(n *chart.Node) int {
		if i, ok := ids[n]; ok {
			return i
		}
		ids[n] = len(order)
		order = append(order, n)
		return ids[n]
	}

	var lines []string
	var walk func(n *chart.Node)
	seen := map[*chart.Node]bool{}
	walk = func(n *chart.Node) {
		nid := id(n)
		if seen[n] {
			return
		}
		seen[n] = true
		for i, sub := range n.Subs {
			if sub.IsTerminalLeaf() || sub.Flattened {
				lines = append(lines, fmt.Sprintf("n%d[%s/%d] -> %q [alt=%d]", nid, n.Symbol, n.Size, textOf(sub.RuleProps.Text), i))
				continue
			}
			cid := id(sub.Node)
			lines = append(lines, fmt.Sprintf("n%d[%s/%d] -> n%d[%s/%d] [alt=%d]", nid, n.Symbol, n.Size, cid, sub.Node.Symbol, sub.Node.Size, i))
			walk(sub.Node)
			if sub.Next != nil {
				nid2 := id(sub.Next.Node)
				lines = append(lines, fmt.Sprintf("n%d[%s/%d] -> n%d[%s/%d] [alt=%d,pos=1]", nid, n.Symbol, n.Size, nid2, sub.Next.Node.Symbol, sub.Next.Node.Size, i))
				walk(sub.Next.Node)
			}
		}
	}
	walk(start)
	return strings.Join(lines, "\n")
}

// Stack renders a table of every distinct node the parse reached,
// in first-visit order from start. A completed GLR chart parse does not
// retain its live shift/reduce stack, so this is the nearest durable
// analog: the set of (symbol, size) nodes the stack passed through,
// with each one's annotated min cost and alternative count.
func Stack(start *chart.Node) string {
	seen := map[*chart.Node]bool{}
	var order []*chart.Node
	var walk func(n *chart.Node)
	walk = func(n *chart.Node) {
		if seen[n] {
			return
		}
		seen[n] = true
		order = append(order, n)
		for _, sub := range n.Subs {
			if sub.Node != nil {
				walk(sub.Node)
			}
			if sub.Next != nil && sub.Next.Node != nil {
				walk(sub.Next.Node)
			}
		}
	}
	walk(start)

	data := [][]string{{"SYMBOL", "SIZE", "MINCOST", "ALTS"}}
	for _, n := range order {
		data = append(data, []string{n.Symbol, fmt.Sprintf("%d", n.Size), fmt.Sprintf("%.2f", n.MinCost), fmt.Sprintf("%d", len(n.Subs))})
	}

	return rosed.Edit("").
		InsertTableOpts(0, data, 80, rosed.Options{
			TableHeaders: true,
			TableBorders: true,
		}).
		String()
}
