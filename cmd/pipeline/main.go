package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"eventml/pkg/config"
	"eventml/pkg/logger"
	"eventml/pkg/runner"
)

//
// ---------------------- CLI FLAGS ----------------------
//
// -config    : Path to the run configuration (JSON, YAML or TOML). Default = config.json
// -log-level : Overrides log_level from the configuration ("debug", "info", "warn", "error")
//
// Example:
//   go run ./cmd/pipeline -config config.json -log-level debug
//
// -------------------------------------------------------
//

func main() {
	configPath := flag.String("config", "config.json", "path to the run configuration")
	logLevel := flag.String("log-level", "", "log level override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(2)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	sum, err := runner.Run(cfg, log)
	if err != nil {
		log.Error("run aborted", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	fmt.Printf("run %s: %d folds, %d features, %d entities predicted\n",
		sum.RunID, sum.Split.K, len(sum.Features), len(sum.Result.Keys))
	for _, p := range sum.Artifacts {
		fmt.Println("  ", p)
	}
}
