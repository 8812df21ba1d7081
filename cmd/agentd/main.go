// Command agentd runs the agent side of the protocol: it listens for
// controller connections, each served concurrently by its own session
// rooted at a fresh subdirectory of --outdir.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/firestige/otus-bench/internal/agent"
	"github.com/firestige/otus-bench/internal/config"
	"github.com/firestige/otus-bench/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = flag.String("config", "", "optional process config file (yaml/toml)")
		listen     = flag.String("listen", "", "address to listen on (default 127.0.0.1:7070)")
		outdir     = flag.String("outdir", "", "output root directory (default ./out)")
		logLevel   = flag.String("log-level", "", "log level (default info)")
	)
	flag.Parse()

	cfg, err := config.LoadAgent(*configFile)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *outdir != "" {
		cfg.OutDir = *outdir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := logging.Configure(cfg.LogLevel); err != nil {
		return err
	}
	log := logging.Component("agent")

	srv, err := agent.Listen(cfg.Listen, cfg.OutDir, log)
	if err != nil {
		return err
	}
	log.WithField("addr", srv.Addr().String()).Info("agent listening")
	return srv.Serve()
}
