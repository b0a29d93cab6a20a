// Command pvalues reads one JSON line {"array1":[[...]],"array2":[[...]],"mode":"ttest"}
// from stdin and writes one JSON array of p-values to stdout.
// The mode defaults to STATS_MODE. It exits 1 on malformed input or mismatched shapes.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/config"
	"github.com/mimir-aip/pathway-graph/pkg/logging"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/stats"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), os.Stdin, os.Stdout, models.StatsMode(cfg.StatsMode), cfg.StatsWorkers); err != nil {
		logger.Error("p-value computation failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer, defaultMode models.StatsMode, workers int) error {
	reader := bufio.NewReader(in)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("%w: failed to read input: %v", apperrors.ErrIO, err)
	}

	var req models.PValueRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return fmt.Errorf("%w: malformed input: %v", apperrors.ErrSchema, err)
	}
	mode := req.Mode
	if mode == "" {
		mode = defaultMode
	}

	engine, err := stats.NewEngine(mode, workers)
	if err != nil {
		return err
	}
	pvalues, err := engine.Run(ctx, req.Array1, req.Array2)
	if err != nil {
		return err
	}

	data, err := json.Marshal(pvalues)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')
	_, err = out.Write(data)
	return err
}
