package grammar

import (
	"testing"

	"github.com/corvidic/corvid/internal/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalGrammar = `{
	"startSymbol": "query",
	"states": [
		{
			"shifts": [{"symbol": "repos_kw", "stateIndex": 1}],
			"reductions": [],
			"isAccept": false
		},
		{
			"shifts": [],
			"reductions": [
				{
					"lhs": "query",
					"rhsArity": 1,
					"isBinary": false,
					"isTransposition": false,
					"ruleProps": {
						"cost": 0,
						"semantic": {"name": "repositories", "minParams": 0, "maxParams": 0},
						"text": "repos"
					}
				}
			],
			"isAccept": true
		}
	],
	"symbolTable": {
		"repos_kw": {"isTerminal": true, "terminalRules": [{"cost": 0, "text": "repos"}]},
		"query": {"isTerminal": false}
	},
	"entities": {
		"acme": [{"category": "company", "id": "co:acme", "text": "Acme"}]
	},
	"intSymbols": [{"name": "small_int", "min": 0, "max": 10}],
	"deletables": ["the", "a"]
}`

func Test_Load_MinimalGrammar(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	g, err := Load([]byte(minimalGrammar))
	require.NoError(err)

	assert.Equal("query", g.StartSymbol)
	assert.Len(g.States, 2)
	assert.True(g.States[1].IsAccept)
	assert.True(g.IsDeletable("the"))
	assert.False(g.IsDeletable("repos"))

	sym, ok := g.Symbol("repos_kw")
	require.True(ok)
	assert.True(sym.IsTerminal)
	require.Len(sym.TerminalRules, 1)
	assert.Equal("repos", sym.TerminalRules[0].Text[0].Literal)

	require.Len(g.IntSymbols, 1)
	assert.Equal("small_int", g.IntSymbols[0].Name)

	require.Contains(g.Entities, "acme")
	assert.Equal("co:acme", g.Entities["acme"][0].ID)
}

func Test_Load_MalformedJSON(t *testing.T) {
	assert := assert.New(t)
	_, err := Load([]byte(`{not json`))
	assert.Equal(qerrors.KindGrammarLoad, qerrors.ClassifyKind(err))
}

func Test_Load_MissingStartSymbol(t *testing.T) {
	assert := assert.New(t)
	_, err := Load([]byte(`{"states":[],"symbolTable":{}}`))
	assert.Equal(qerrors.KindGrammarLoad, qerrors.ClassifyKind(err))
}

func Test_Load_InsertionAlternativesSortedByCost(t *testing.T) {
	doc := `{
		"startSymbol": "s",
		"states": [
			{
				"shifts": [],
				"reductions": [
					{
						"lhs": "s",
						"rhsArity": 1,
						"isBinary": false,
						"isTransposition": false,
						"ruleProps": [
							{"cost": 2, "text": "an", "insertedSymbolIndex": 0},
							{"cost": 1, "text": "a", "insertedSymbolIndex": 0}
						]
					}
				],
				"isAccept": true
			}
		],
		"symbolTable": {"s": {"isTerminal": false}},
		"entities": {},
		"intSymbols": [],
		"deletables": []
	}`
	require := require.New(t)
	assert := assert.New(t)

	g, err := Load([]byte(doc))
	require.NoError(err)
	red := g.States[0].Reductions[0]
	require.Len(red.RuleProps, 2)
	assert.Equal(1.0, red.Cheapest().Cost)
	assert.Equal("a", red.RuleProps[0].Text[0].Literal)
	assert.Equal("an", red.RuleProps[1].Text[0].Literal)
}

func Test_Load_RejectsUnaryNonInsertionCycle(t *testing.T) {
	// state 0 shifts "a" into state 1, which reduces unarily back to "a"
	// and also shifts "a" back out -- a direct self-cycle.
	doc := `{
		"startSymbol": "a",
		"states": [
			{"shifts": [{"symbol": "a", "stateIndex": 1}], "reductions": [], "isAccept": false},
			{
				"shifts": [{"symbol": "a", "stateIndex": 1}],
				"reductions": [
					{"lhs": "a", "rhsArity": 1, "isBinary": false, "isTransposition": false,
					 "ruleProps": {"cost": 0, "text": "x"}}
				],
				"isAccept": true
			}
		],
		"symbolTable": {"a": {"isTerminal": false}},
		"entities": {},
		"intSymbols": [],
		"deletables": []
	}`
	assert := assert.New(t)
	_, err := Load([]byte(doc))
	assert.Equal(qerrors.KindGrammarLoad, qerrors.ClassifyKind(err))
}

func Test_InflectionForms_Resolve(t *testing.T) {
	assert := assert.New(t)
	f := InflectionForms{Forms: map[string]string{"default": "work", "past": "worked"}}
	assert.Equal("worked", f.Resolve("past"))
	assert.Equal("work", f.Resolve("presentPlural"))
}
