// Command ingestor runs one ingestion pass against the Eventfinda API and
// writes the resulting marker batch as JSON.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/eventures/eventures/internal/bootstrap"
	"github.com/eventures/eventures/internal/core/domain"
	"github.com/eventures/eventures/internal/pkg/config"
	"github.com/eventures/eventures/internal/pkg/logging"
	"github.com/eventures/eventures/internal/pkg/telemetry"
)

const (
	exitOK       = 0
	exitPipeline = 1
	exitUsage    = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs, sf := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	cfg, err := config.LoadWithFlags("eventures-ingestor", fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitUsage
	}
	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	params, err := sf.params(cfg)
	if err != nil {
		slog.Error("invalid arguments", "stage", "query", "error", err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	pipeline, err := bootstrap.NewPipeline(cfg, nil)
	if err != nil {
		slog.Error("pipeline setup failed", "error", err)
		return exitUsage
	}
	defer pipeline.Close()

	batch, err := pipeline.Service.Markers(ctx, params, sf.runOptions()...)
	if err != nil {
		slog.Error("ingestion failed", "stage", domain.StageOf(err), "error", err)
		return exitCodeFor(err)
	}

	if err := writeBatch(sf.out, stdout, batch); err != nil {
		slog.Error("write markers failed", "out", sf.out, "error", err)
		return exitPipeline
	}

	slog.Info("ingestion complete",
		"run_id", batch.RunID,
		"markers", len(batch.Markers),
		"published", pipeline.Publisher != nil,
	)
	return exitOK
}

// exitCodeFor maps a pipeline error to an exit code. Query errors are
// caller misuse.
func exitCodeFor(err error) int {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return exitUsage
	}
	return exitPipeline
}

// writeBatch writes the batch as indented JSON to path, or to stdout when
// path is "-" or empty.
func writeBatch(path string, stdout io.Writer, batch *domain.MarkerBatch) error {
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
