/*
Qserver loads a corvid configuration file and starts serving the query
engine over HTTP.

Usage:

	qserver [flags]
	qserver [flags] -c config.toml

Once started, qserver listens for HTTP requests and answers them with
the /parse endpoint described by package server. By default it looks
for corvid.toml in the current directory; this can be changed with the
--config/-c flag.

The flags are:

	-v, --version
		Give the current version of corvid and then exit.

	-c, --config PATH
		Load configuration from PATH instead of ./corvid.toml.

	-l, --listen ADDRESS
		Override the listen_address configured in the config file.
*/
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/corvidic/corvid/internal/config"
	"github.com/corvidic/corvid/internal/grammar"
	"github.com/corvidic/corvid/internal/version"
	"github.com/corvidic/corvid/query"
	"github.com/corvidic/corvid/server"
	"github.com/corvidic/corvid/server/querylog"
)

const (
	ExitSuccess  = 0
	ExitBadUsage = 1
	ExitInitErr  = 2
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of corvid and then exit.")
	flagConfig  = pflag.StringP("config", "c", "corvid.toml", "Load configuration from PATH.")
	flagListen  = pflag.StringP("listen", "l", "", "Override the configured listen address.")
)

func main() {
	returnCode := ExitSuccess
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			os.Exit(ExitInitErr)
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

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Printf("FATAL could not load config: %s", err)
		returnCode = ExitInitErr
		return
	}

	listenAddr := cfg.Server.ListenAddress
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr == "" {
		listenAddr = "localhost:8080"
	}

	data, err := os.ReadFile(cfg.GrammarPath)
	if err != nil {
		log.Printf("FATAL could not read grammar file %q: %s", cfg.GrammarPath, err)
		returnCode = ExitInitErr
		return
	}
	g, err := grammar.Load(data)
	if err != nil {
		log.Printf("FATAL could not load grammar: %s", err)
		returnCode = ExitInitErr
		return
	}

	if cfg.Server.JWTSigningKey == "" {
		log.Printf("WARN  no jwt_signing_key configured; every bearer token will be rejected")
	}
	if cfg.Server.APIKeyHash == "" {
		log.Printf("WARN  no api_key_hash configured; POST /token will reject every key")
	}

	var qlog *querylog.Store
	if cfg.QueryLog.DatabaseDir != "" {
		qlog, err = querylog.Open(cfg.QueryLog.DatabaseDir)
		if err != nil {
			log.Printf("FATAL could not open query log: %s", err)
			returnCode = ExitInitErr
			return
		}
		defer qlog.Close()
	}

	eng := query.New(g)
	srv := server.New(eng, []byte(cfg.Server.JWTSigningKey), cfg.Server.APIKeyHash, qlog)

	log.Printf("INFO  corvid %s listening on %s", version.Current, listenAddr)
	if err := http.ListenAndServe(listenAddr, srv); err != nil {
		log.Printf("FATAL server exited: %s", err)
		returnCode = ExitInitErr
		return
	}
}
