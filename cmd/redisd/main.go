package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mshaverdo/assert"

	"github.com/tarnaldo88/Redis-Server/internal/log"
	"github.com/tarnaldo88/Redis-Server/internal/server"
	"github.com/tarnaldo88/Redis-Server/internal/store"
)

var assertionEnabled = "1"

func init() {
	assert.Enabled = assertionEnabled == "1"
}

const (
	defaultPort     = 6379
	defaultDumpPath = "dump.my_rdb"
)

// Per spec.md §6: a single positional argument, if present, is the
// decimal listening port; there are no other flags and no environment
// variables consulted by the core. CLI argument parsing beyond this is
// explicitly out of scope (spec.md §1); a full flag/config framework
// like the armandParser example's viper/cobra stack is not warranted
// here (see DESIGN.md).
func main() {
	flag.Parse()

	port := defaultPort
	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			log.Criticalf("invalid port %q: %s", flag.Arg(0), err)
			os.Exit(1)
		}
		port = p
	}

	log.SetLevel(log.NOTICE)

	st := store.New()
	srv := server.New(":"+strconv.Itoa(port), defaultDumpPath, st)

	go handleSignals(srv)

	if err := srv.ListenAndServe(); err != nil {
		log.Criticalf(err.Error())
		os.Exit(1)
	}
}

func handleSignals(srv *server.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	for s := range sigs {
		switch s {
		case syscall.SIGINT, syscall.SIGTERM:
			srv.Shutdown()
			return
		}
	}
}
