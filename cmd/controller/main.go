// Command controller drives one scenario run end to end: it loads and
// validates a scenario file, connects to every agent it names, runs
// the scenario, and writes each agent's collected archive and
// activity map under --outdir.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/firestige/otus-bench/internal/config"
	"github.com/firestige/otus-bench/internal/controller"
	"github.com/firestige/otus-bench/internal/logging"
	"github.com/firestige/otus-bench/internal/scenario"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile   = flag.String("config", "", "optional process config file (yaml/toml)")
		scenarioPath = flag.String("scenario", "", "path to the scenario YAML file")
		outdir       = flag.String("outdir", "", "output root directory (default ./out)")
		logLevel     = flag.String("log-level", "", "log level (default info)")
	)
	flag.Parse()

	cfg, err := config.LoadController(*configFile)
	if err != nil {
		return err
	}
	if *scenarioPath != "" {
		cfg.Scenario = *scenarioPath
	}
	if *outdir != "" {
		cfg.OutDir = *outdir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if cfg.Scenario == "" {
		return fmt.Errorf("controller: --scenario is required")
	}

	if err := logging.Configure(cfg.LogLevel); err != nil {
		return err
	}
	log := logging.Component("controller")

	sc, err := scenario.Load(cfg.Scenario)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("controller: create outdir: %w", err)
	}

	ctl := controller.New(sc, cfg.OutDir, log)
	ctx := context.Background()
	if err := ctl.Connect(ctx); err != nil {
		return err
	}
	if err := ctl.Run(ctx); err != nil {
		return err
	}
	log.Info("scenario complete")
	return nil
}
