/*
Qcli runs natural-language queries against a compiled corvid grammar.

Usage:

	qcli [flags]
	qcli [flags] -c "QUERY"

With no -c flag, qcli starts an interactive readline-backed prompt that
accepts one query per line and prints its k-best results until EOF or
an interrupt. With -c, it runs exactly one query non-interactively and
exits.

The flags are:

	-v, --version
		Give the current version of corvid and then exit.

	-g, --grammar PATH
		Load the compiled grammar from PATH. Required unless
		CORVID_GRAMMAR is set in the environment.

	-k N
		Request at most N results per query. Defaults to query.DefaultK.

	-c, --command QUERY
		Run QUERY once and exit instead of starting the interactive
		prompt.

	-d, --direct
		Read from stdin directly instead of through readline, even when
		stdin is a terminal. Useful when piping queries in from a file
		or another process.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/input"
	"github.com/corvidic/corvid/internal/semantics"
	"github.com/corvidic/corvid/internal/version"
	"github.com/corvidic/corvid/query"
)

const EnvGrammar = "CORVID_GRAMMAR"

const (
	ExitSuccess  = 0
	ExitBadUsage = 1
	ExitBadInput = 2
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of corvid and then exit.")
	flagGrammar = pflag.StringP("grammar", "g", "", "Load the compiled grammar from PATH.")
	flagK       = pflag.Int("k", 0, "Request at most N results per query.")
	flagCommand = pflag.StringP("command", "c", "", "Run QUERY once and exit.")
	flagDirect  = pflag.BoolP("direct", "d", false, "Read from stdin directly instead of through readline.")
)

func main() {
	returnCode := ExitSuccess

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			os.Exit(ExitBadInput)
		}
		os.Exit(returnCode)
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("corvid v%s\n", version.Current)
		return
	}

	if len(pflag.Args()) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		returnCode = ExitBadUsage
		return
	}

	grammarPath := os.Getenv(EnvGrammar)
	if pflag.Lookup("grammar").Changed {
		grammarPath = *flagGrammar
	}
	if grammarPath == "" {
		fmt.Fprintf(os.Stderr, "No grammar file given; use -g or set %s\n", EnvGrammar)
		returnCode = ExitBadUsage
		return
	}

	data, err := os.ReadFile(grammarPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL could not read grammar file: %s\n", err)
		returnCode = ExitBadInput
		return
	}

	g, err := grammar.Load(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL could not load grammar: %s\n", err)
		returnCode = ExitBadInput
		return
	}

	eng := query.New(g)

	opts := query.Options{Semantics: true}
	if pflag.Lookup("k").Changed {
		opts.K = *flagK
	}

	if pflag.Lookup("command").Changed {
		runQuery(eng, *flagCommand, opts)
		return
	}

	useReadline := !*flagDirect
	var reader commandReader
	if useReadline {
		icr, err := input.NewInteractiveReader()
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL could not start readline: %s\n", err)
			returnCode = ExitBadInput
			return
		}
		reader = icr
	} else {
		reader = input.NewDirectReader(os.Stdin)
	}
	defer reader.Close()

	runLoop(eng, reader, opts)
}

type commandReader interface {
	ReadCommand() (string, error)
	Close() error
}

func runLoop(eng *query.Engine, reader commandReader, opts query.Options) {
	for {
		line, err := reader.ReadCommand()
		if err != nil {
			if err == io.EOF {
				return
			}
			fmt.Fprintf(os.Stderr, "ERROR reading input: %s\n", err)
			return
		}

		runQuery(eng, line, opts)
	}
}

func runQuery(eng *query.Engine, q string, opts query.Options) {
	resp, err := eng.Parse(context.Background(), q, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return
	}

	if len(resp.Results) == 0 {
		fmt.Println("(no results)")
		return
	}

	for i, r := range resp.Results {
		fmt.Printf("%d. %s\n", i+1, r.Text)
		if opts.Semantics {
			fmt.Printf("   %s  (cost %.2f)\n", semantics.CanonicalString(r.Semantic), r.Cost)
		}
	}
	if resp.Partial {
		fmt.Println("(partial: search deadline expired before exhausting all candidates)")
	}
}
