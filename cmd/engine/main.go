/*
main.go - Batch driver entry point

PURPOSE:
  One-shot mode: read a finite CSV record set, apply every event to a
  fresh ledger, print the final account snapshot to stdout, exit.

USAGE:
  engine [flags] <transactions.csv>

  Pass "-" as the file to read stdin.

FLAGS:
  -config       YAML config path (optional; defaults apply without it)
  -archive      also write the snapshot into a SQLite file
  -max-history  override the history cache capacity (-1 = unbounded)

EXIT CODES:
  0  input consumed, snapshot written (skipped rows do NOT fail a run)
  1  fatal I/O: missing input file, unreadable config, broken stdout

OUTPUT DISCIPLINE:
  stdout carries only the snapshot CSV; all logs go to stderr.

SEE ALSO:
  - ingest/processor.go: the processing loop
  - cmd/server/main.go: the long-running network mode
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/warp/payments-engine/config"
	"github.com/warp/payments-engine/engine"
	"github.com/warp/payments-engine/ingest"
	"github.com/warp/payments-engine/logging"
	"github.com/warp/payments-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "YAML config path")
	archivePath := flag.String("archive", "", "also archive the snapshot to this SQLite file")
	maxHistory := flag.Int("max-history", 0, "history cache capacity override (-1 = unbounded)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <transactions.csv>\n", os.Args[0])
		os.Exit(1)
	}

	// .env feeds ${VAR} expansion in the config file; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *maxHistory != 0 {
		cfg.Engine.MaxTxHistory = *maxHistory
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, flag.Arg(0), *archivePath); err != nil {
		log.Error("failed to process transactions", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, input, archivePath string) error {
	eng := engine.New(cfg.HistoryCap(), engine.WithLogger(log))
	proc := ingest.NewProcessor(eng, log)

	if err := proc.ProcessFile(input); err != nil {
		return err
	}
	processed, skipped := proc.Counts()
	log.Info("input consumed",
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
	)

	if err := proc.WriteResults(os.Stdout); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	if archivePath != "" {
		archive, err := sqlite.Open(archivePath)
		if err != nil {
			return err
		}
		defer archive.Close()
		if err := archive.WriteSnapshot(context.Background(), eng.Snapshot()); err != nil {
			return err
		}
		log.Info("snapshot archived", zap.String("path", archivePath))
	}
	return nil
}
