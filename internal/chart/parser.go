package chart

import (
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/qerrors"
)

// Vertex is a GLR graph vertex identified by (State, Pos). It owns
// the ZNodes that were shifted or reduced into it.
type Vertex struct {
	State int
	Pos int

	// zedges is keyed by the Node each ZNode carries, giving the GLR
	// packing: two shifts/reduces landing on the same (state, pos) with
	// the same Node are the same edge, just with merged predecessors.
	zedges map[*Node]*ZNode
}

func newVertex(state, pos int) *Vertex {
	return &Vertex{State: state, Pos: pos, zedges: make(map[*Node]*ZNode)}
}

// ZNodes returns every edge arriving at v, in no particular order.
func (v *Vertex) ZNodes() []*ZNode {
	out := make([]*ZNode, 0, len(v.zedges))
	for _, z := range v.zedges {
		out = append(out, z)
	}
	return out
}

// ZNode is an edge carrying a Node and the list of predecessor Vertices
// that shifted or reduced it into existence.
type ZNode struct {
	Node *Node
	Preds []*Vertex
}

func (z *ZNode) addPred(v *Vertex) {
	for _, p := range z.Preds {
		if p == v {
			return
		}
	}
	z.Preds = append(z.Preds, v)
}

type nodeKey struct {
	symbol string
	size int
}

// pendingReduce is one entry in the FIFO reduction queue at a position:
// a freshly-created ZNode paired with one of the reductions available in
// the state it landed in.
type pendingReduce struct {
	znode *ZNode
	reduction grammar.Reduction
}

// chart holds the per-parse working state: the node and vertex tables
// indexed by position, and the pending-reduction queue for the position
// currently being processed.
type chart struct {
	g *grammar.Grammar

	// nodeTab[p] dedupes Nodes ending at position p, by (symbol, size).
	nodeTab []map[nodeKey]*Node

	// vertTab[p] dedupes Vertices at position p, by state.
	vertTab []map[int]*Vertex

	pending []pendingReduce
}

// Parser runs the GLR chart parse against a fixed Grammar.
type Parser struct {
	g *grammar.Grammar
}

// New returns a Parser over g.
func New(g *grammar.Grammar) *Parser {
	return &Parser{g: g}
}

// Parse builds the packed forest for a tokenized query and returns the
// start node, or a qerrors.NoParse error if no accept state is reached
//. matches must be indexed by end-token position 1..n (matches[0]
// is unused), as produced by internal/lex's terminal matcher, and n is
// the number of tokens.
func (p *Parser) Parse(matches [][]TerminalMatch, n int) (*Node, error) {
	c := &chart{
		g: p.g,
		nodeTab: make([]map[nodeKey]*Node, n+1),
		vertTab: make([]map[int]*Vertex, n+1),
	}
	for i := range c.nodeTab {
		c.nodeTab[i] = make(map[nodeKey]*Node)
		c.vertTab[i] = make(map[int]*Vertex)
	}

	initialStateIdx := 0
	start := newVertex(initialStateIdx, 0)
	c.vertTab[0][initialStateIdx] = start

	for pos := 0; pos <= n; pos++ {
		if pos > 0 {
			for _, tm := range matches[pos] {
				startVerts := c.vertTab[tm.Start]
				for _, node := range tm.Nodes {
					for _, v := range startVerts {
						c.addNode(pos, node, v)
					}
				}
			}
		}
		c.drainReductions(pos)
	}

	for _, v := range c.vertTab[n] {
		if p.g.States[v.State].IsAccept {
			for _, z := range v.zedges {
				return z.Node, nil
			}
			// accepting state reached with no carried node only happens
			// for an empty grammar; fall through to NoParse.
		}
	}
	return nil, qerrors.NoParse()
}

// addNode is add_node: shift node.Symbol out of oldVertex, obtain
// or create the destination vertex and the ZNode carrying node there,
// and enqueue its reductions if the ZNode is new.
func (c *chart) addNode(destPos int, node *Node, oldVertex *Vertex) {
	sh, ok := c.g.States[oldVertex.State].ShiftOn(node.Symbol)
	if !ok {
		return
	}
	dest := c.obtainVertex(destPos, sh.NextState)
	z, isNew := c.obtainZNode(dest, node)
	z.addPred(oldVertex)
	if isNew {
		for _, red := range c.g.States[sh.NextState].Reductions {
			c.pending = append(c.pending, pendingReduce{znode: z, reduction: red})
		}
	}
}

func (c *chart) obtainVertex(pos, state int) *Vertex {
	if v, ok := c.vertTab[pos][state]; ok {
		return v
	}
	v := newVertex(state, pos)
	c.vertTab[pos][state] = v
	return v
}

func (c *chart) obtainZNode(v *Vertex, node *Node) (*ZNode, bool) {
	if z, ok := v.zedges[node]; ok {
		return z, false
	}
	z := &ZNode{Node: node}
	v.zedges[node] = z
	return z, true
}

// drainReductions processes the pending-reduction queue until empty,
// which must happen before the parser advances past pos (: "all
// reductions at a position complete before shifts advance").
func (c *chart) drainReductions(pos int) {
	for len(c.pending) > 0 {
		pr := c.pending[0]
		c.pending = c.pending[1:]
		c.reduce(pos, pr.znode, pr.reduction)
	}
}

// reduce implements reduce: for a unary reduction, reduces znode's Node
// directly; for a binary (or transposition) reduction, walks one more
// level of predecessor vertices/ZNodes to find the left sibling.
func (c *chart) reduce(pos int, znode *ZNode, red grammar.Reduction) {
	if !red.IsBinary {
		sub := &Sub{
			Node: znode.Node,
			Size: znode.Node.Size,
			RuleProps: red.Cheapest(),
		}
		if len(red.RuleProps) > 1 {
			sub.Alternatives = red.RuleProps
		}
		newNode := c.addSub(pos, red.LHS, sub)
		for _, v := range znode.Preds {
			c.addNode(pos, newNode, v)
		}
		return
	}

	for _, mid := range znode.Preds {
		for _, leftZ := range mid.ZNodes() {
			var outerNode *Node
			var inner *Sub
			if red.IsTransposition {
				outerNode = znode.Node
				inner = &Sub{Node: leftZ.Node, Size: leftZ.Node.Size}
			} else {
				outerNode = leftZ.Node
				inner = &Sub{Node: znode.Node, Size: znode.Node.Size}
			}
			sub := &Sub{
				Node: outerNode,
				Next: inner,
				Size: leftZ.Node.Size + znode.Node.Size,
				RuleProps: red.Cheapest(),
			}
			if len(red.RuleProps) > 1 {
				sub.Alternatives = red.RuleProps
			}
			newNode := c.addSub(pos, red.LHS, sub)
			for _, v := range leftZ.Preds {
				c.addNode(pos, newNode, v)
			}
		}
	}
}

// addSub is the packing step. Finds or creates the
// (lhs, size) Node at position pos and appends newSub unless an
// equivalent alternative is already present.
func (c *chart) addSub(pos int, lhs string, newSub *Sub) *Node {
	key := nodeKey{symbol: lhs, size: newSub.Size}
	node, ok := c.nodeTab[pos][key]
	if !ok {
		node = newNode(lhs, newSub.Size)
		c.nodeTab[pos][key] = node
	}
	for _, existing := range node.Subs {
		if subsEqual(existing, newSub) {
			return node
		}
	}
	node.Subs = append(node.Subs, newSub)
	return node
}

func subsEqual(a, b *Sub) bool {
	if a.Size != b.Size || a.Node != b.Node {
		return false
	}
	aNext, bNext := a.Next, b.Next
	if (aNext == nil) != (bNext == nil) {
		return false
	}
	if aNext != nil && (aNext.Node != bNext.Node || aNext.Size != bNext.Size) {
		return false
	}
	return true
}
