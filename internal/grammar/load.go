package grammar

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/corvidic/corvid/internal/semantics"
)

// Load reads the compiled-grammar JSON document from data and builds
// the in-memory Grammar. A malformed document, or one that fails the
// grammar-generator invariant checked here (no nonterminal may reach
// itself via a pure chain of unary non-insertion reductions), returns a
// qerrors.GrammarLoad error. This is the only place in the engine that
// is allowed to fail fatally; once loaded, a Grammar is assumed
// well-formed for the lifetime of the process.
func Load(data []byte) (*Grammar, error) {
	var doc jsonGrammar
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, qerrors.WrapGrammarLoad(err, "malformed compiled grammar document")
	}

	g := &Grammar{
		StartSymbol: doc.StartSymbol,
		Symbols: make(map[string]Symbol, len(doc.SymbolTable)),
		Entities: make(map[string][]EntityMatch, len(doc.Entities)),
		Deletables: make(map[string]bool, len(doc.Deletables)),
	}

	if g.StartSymbol == "" {
		return nil, qerrors.GrammarLoad("missing startSymbol")
	}

	for name, js := range doc.SymbolTable {
		sym := Symbol{
			Name: name,
			IsTerminal: js.IsTerminal,
			IsPlaceholder: js.IsPlaceholder,
			IsIntegerRange: js.IntMin != nil || js.IntMax != nil,
		}
		if js.IntMin != nil {
			sym.IntMin = *js.IntMin
		}
		if js.IntMax != nil {
			sym.IntMax = *js.IntMax
		}
		for _, jrp := range js.TerminalRules {
			rp, err := jrp.toRuleProps()
			if err != nil {
				return nil, qerrors.WrapGrammarLoad(err, "symbol %q: bad terminal rule", name)
			}
			sym.TerminalRules = append(sym.TerminalRules, rp)
		}
		g.Symbols[name] = sym
	}

	for ngram, matches := range doc.Entities {
		for _, m := range matches {
			g.Entities[ngram] = append(g.Entities[ngram], EntityMatch{
				Category: m.Category,
				ID: m.ID,
				Text: m.Text,
			})
		}
	}

	for _, is := range doc.IntSymbols {
		g.IntSymbols = append(g.IntSymbols, IntSymbol{Name: is.Name, Min: is.Min, Max: is.Max})
	}
	sort.Slice(g.IntSymbols, func(i, j int) bool {
		if g.IntSymbols[i].Min != g.IntSymbols[j].Min {
			return g.IntSymbols[i].Min < g.IntSymbols[j].Min
		}
		return g.IntSymbols[i].Max < g.IntSymbols[j].Max
	})

	for _, d := range doc.Deletables {
		g.Deletables[d] = true
	}

	for i, js := range doc.States {
		st := State{IsAccept: js.IsAccept}
		for _, jsh := range js.Shifts {
			st.Shifts = append(st.Shifts, Shift{Symbol: jsh.Symbol, NextState: jsh.StateIndex})
		}
		for _, jr := range js.Reductions {
			red := Reduction{
				LHS: jr.LHS,
				RHSArity: jr.RHSArity,
				IsBinary: jr.IsBinary,
				IsTransposition: jr.IsTransposition,
			}
			alts, err := jr.RuleProps.toRulePropsSlice()
			if err != nil {
				return nil, qerrors.WrapGrammarLoad(err, "state %d: reduction to %q: bad ruleProps", i, jr.LHS)
			}
			if len(alts) == 0 {
				return nil, qerrors.GrammarLoad("state %d: reduction to %q has no ruleProps", i, jr.LHS)
			}
			sort.SliceStable(alts, func(a, b int) bool { return alts[a].Cost < alts[b].Cost })
			red.RuleProps = alts
			st.Reductions = append(st.Reductions, red)
		}
		g.States = append(g.States, st)
	}

	if err := checkNoUnaryCycles(g); err != nil {
		return nil, err
	}

	return g, nil
}

// checkNoUnaryCycles enforces the /that no nonterminal
// symbol reaches itself via a pure chain of unary, non-insertion
// reductions. It builds a directed graph LHS -> RHS-symbol for every
// unary non-insertion reduction reachable from any state and checks it
// for cycles; annotate's post-order memoized traversal relies on
// this to terminate.
//
// The grammar does not record, per se, "the RHS symbol of a reduction" --
// that information lives implicitly in which shifts/earlier reductions
// feed a given state's reduction. Since corvid consumes an already
// compiled table (the grammar-generation pipeline that enforces this
// invariant is explicitly out of scope, ), the practical check
// available here is: a reduction is "unary non-insertion" if RHSArity==1,
// !IsBinary, and the cheapest RuleProps alternative is not an insertion.
// The RHS symbol of such a reduction in state i is taken to be the
// symbol of every Shift whose NextState is i, since that shift is what
// carried the parse into state i.
func checkNoUnaryCycles(g *Grammar) error {
	accessing := make(map[int]map[string]bool)
	for _, st := range g.States {
		for _, sh := range st.Shifts {
			if accessing[sh.NextState] == nil {
				accessing[sh.NextState] = make(map[string]bool)
			}
			accessing[sh.NextState][sh.Symbol] = true
		}
	}

	edges := make(map[string]map[string]bool)
	for i, st := range g.States {
		for _, red := range st.Reductions {
			if red.RHSArity != 1 || red.IsBinary {
				continue
			}
			if red.Cheapest().IsInsertion() {
				continue
			}
			for sym := range accessing[i] {
				if edges[red.LHS] == nil {
					edges[red.LHS] = make(map[string]bool)
				}
				edges[red.LHS][sym] = true
			}
		}
	}

	const (
		white = 0
		gray = 1
		black = 2
	)
	color := make(map[string]int)
	var visit func(n string) error
	visit = func(n string) error {
		color[n] = gray
		for next := range edges[n] {
			switch color[next] {
			case gray:
				return qerrors.GrammarLoad("symbol %q reaches itself via a chain of unary non-insertion reductions", n)
			case white:
				if err := visit(next); err != nil {
					return err
				}
			}
		}
		color[n] = black
		return nil
	}
	for n := range edges {
		if color[n] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- JSON schema -------------------------------------------------

type jsonGrammar struct {
	StartSymbol string `json:"startSymbol"`
	States []jsonState `json:"states"`
	SymbolTable map[string]jsonSymbolInfo `json:"symbolTable"`
	Entities map[string][]jsonEntity `json:"entities"`
	IntSymbols []jsonIntSymbol `json:"intSymbols"`
	Deletables []string `json:"deletables"`
}

type jsonState struct {
	Shifts []jsonShift `json:"shifts"`
	Reductions []jsonReduction `json:"reductions"`
	IsAccept bool `json:"isAccept"`
}

type jsonShift struct {
	Symbol string `json:"symbol"`
	StateIndex int `json:"stateIndex"`
}

type jsonReduction struct {
	LHS string `json:"lhs"`
	RHSArity int `json:"rhsArity"`
	IsBinary bool `json:"isBinary"`
	IsTransposition bool `json:"isTransposition"`
	RuleProps jsonRulePropsOrList `json:"ruleProps"`
}

type jsonSymbolInfo struct {
	IsTerminal bool `json:"isTerminal"`
	IsPlaceholder bool `json:"isPlaceholder"`
	TerminalRules []jsonRulePropsOrList `json:"terminalRules"`
	IntMin *int `json:"intMin"`
	IntMax *int `json:"intMax"`
}

type jsonEntity struct {
	Category string `json:"category"`
	ID string `json:"id"`
	Text string `json:"text"`
}

type jsonIntSymbol struct {
	Name string `json:"name"`
	Min int `json:"min"`
	Max int `json:"max"`
}

// jsonRulePropsOrList unmarshals either a single ruleProps object or an
// array of alternatives: insertion rules may carry an array of
// alternative RuleProps sorted by increasing cost.
type jsonRulePropsOrList struct {
	single jsonRuleProps
	multi []jsonRuleProps
	isList bool
}

func (j *jsonRulePropsOrList) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingWS(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		j.isList = true
		return json.Unmarshal(data, &j.multi)
	}
	j.isList = false
	return json.Unmarshal(data, &j.single)
}

func trimLeadingWS(b []byte) []byte {
	i := 0
	for i < len(b) && (b[i] == ' ' || b[i] == '\t' || b[i] == '\n' || b[i] == '\r') {
		i++
	}
	return b[i:]
}

func (j jsonRulePropsOrList) toRulePropsSlice() ([]RuleProps, error) {
	if j.isList {
		out := make([]RuleProps, 0, len(j.multi))
		for _, m := range j.multi {
			rp, err := m.toRuleProps()
			if err != nil {
				return nil, err
			}
			out = append(out, rp)
		}
		return out, nil
	}
	rp, err := j.single.toRuleProps()
	if err != nil {
		return nil, err
	}
	return []RuleProps{rp}, nil
}

func (j jsonRulePropsOrList) toRuleProps() (RuleProps, error) {
	if j.isList {
		if len(j.multi) == 0 {
			return RuleProps{}, fmt.Errorf("empty ruleProps list")
		}
		return j.multi[0].toRuleProps()
	}
	return j.single.toRuleProps()
}

type jsonRuleProps struct {
	Cost float64 `json:"cost"`
	Semantic *jsonSemantic `json:"semantic"`
	Text *jsonTextOrList `json:"text"`
	InsertedSymbolIndex *int `json:"insertedSymbolIndex"`
	GrammaticalForm string `json:"grammaticalForm"`
	AcceptedTense string `json:"acceptedTense"`
	PersonNumber string `json:"personNumber"`
	IsTermSequence bool `json:"isTermSequence"`
	RHSDoesNotProduceText bool `json:"rhsDoesNotProduceText"`
	IsTransposition bool `json:"isTransposition"`
	IsPlaceholder bool `json:"isPlaceholder"`
}

func (jrp jsonRuleProps) toRuleProps() (RuleProps, error) {
	rp := RuleProps{
		Cost: jrp.Cost,
		InsertedSymbolIndex: jrp.InsertedSymbolIndex,
		GrammaticalForm: jrp.GrammaticalForm,
		AcceptedTense: jrp.AcceptedTense,
		PersonNumber: jrp.PersonNumber,
		IsTermSequence: jrp.IsTermSequence,
		RHSDoesNotProduceText: jrp.RHSDoesNotProduceText,
		IsTransposition: jrp.IsTransposition,
		IsPlaceholder: jrp.IsPlaceholder,
	}
	if jrp.Semantic != nil {
		sem := jrp.Semantic.toSemantic()
		rp.Semantic = &sem
	}
	if jrp.Text != nil {
		rp.Text = jrp.Text.toText()
	}
	return rp, nil
}

type jsonSemantic struct {
	Name string `json:"name"`
	Cost float64 `json:"cost"`
	MinParams int `json:"minParams"`
	MaxParams int `json:"maxParams"`
	ForbidsMultiple bool `json:"forbidsMultiple"`
	IsArg bool `json:"isArg"`
}

func (js jsonSemantic) toSemantic() semantics.Semantic {
	if js.IsArg {
		return semantics.Arg(js.Name)
	}
	return semantics.Func(js.Name, js.Cost, js.MinParams, js.MaxParams, js.ForbidsMultiple)
}

// jsonTextOrList unmarshals the three shapes allows for a rule's
// text: a bare literal string, a single inflection object, or an array
// mixing the two.
type jsonTextOrList struct {
	elems []jsonTextElem
}

func (j *jsonTextOrList) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingWS(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return err
		}
		for _, raw := range raws {
			var e jsonTextElem
			if err := e.UnmarshalJSON(raw); err != nil {
				return err
			}
			j.elems = append(j.elems, e)
		}
		return nil
	}
	var e jsonTextElem
	if err := e.UnmarshalJSON(data); err != nil {
		return err
	}
	j.elems = []jsonTextElem{e}
	return nil
}

func (j jsonTextOrList) toText() Text {
	out := make(Text, 0, len(j.elems))
	for _, e := range j.elems {
		out = append(out, e.toTextElem())
	}
	return out
}

type jsonTextElem struct {
	literal string
	isLiteral bool
	inflection map[string]string
}

func (e *jsonTextElem) UnmarshalJSON(data []byte) error {
	trimmed := trimLeadingWS(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		e.isLiteral = true
		return json.Unmarshal(data, &e.literal)
	}
	return json.Unmarshal(data, &e.inflection)
}

func (e jsonTextElem) toTextElem() TextElem {
	if e.isLiteral {
		return TextElem{Literal: e.literal}
	}
	forms := make(map[string]string, len(e.inflection))
	for k, v := range e.inflection {
		forms[k] = v
	}
	return TextElem{Inflection: &InflectionForms{Forms: forms}}
}
