// Package cli holds the clover command line
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/export"
	"github.com/Ramsey-B/clover/pkg/ingest"
	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// NewRootCommand builds the clover command tree
func NewRootCommand() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "clover",
		Short:         "Reconcile sales, logistics and shipping deals into order groups and contacts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "env files to load before reading the environment")

	root.AddCommand(newRunCommand(&envFiles))
	return root
}

type runFlags struct {
	input       string
	output      string
	format      string
	metricsFile string
}

func newRunCommand(envFiles *[]string) *cobra.Command {
	flags := runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation over a snapshot of raw deal records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFiles...)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs, cfg.AppName)
			if err != nil {
				return err
			}
			shutdown, err := tracing.Setup(cmd.Context(), cfg.TracingConfig())
			if err != nil {
				return err
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.WithError(err).Warn("Failed to flush spans")
				}
			}()

			return run(cmd.Context(), logger, cfg, flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "-", "raw records file (.json, .yaml); - reads JSON from stdin")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "-", "result file; - writes to stdout")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format (json, xlsx); defaults from the output extension")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "write run metrics in the Prometheus text format to this file")
	return cmd
}

func run(ctx context.Context, logger ectologger.Logger, cfg config.Config, flags runFlags, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.WithContext(ctx).WithFields(map[string]any{
		"input":  flags.input,
		"output": flags.output,
	})

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	proc, err := processor.NewProcessor(logger, opts)
	if err != nil {
		return err
	}

	records, err := readInput(flags.input, stdin)
	if err != nil {
		return err
	}

	result, err := proc.RunRecords(ctx, records)
	if err != nil {
		return err
	}

	format := outputFormat(flags.format, flags.output)
	if err := writeOutput(flags.output, stdout, func(w io.Writer) error {
		return export.Write(w, format, result)
	}); err != nil {
		log.WithError(err).Error("Failed to write result")
		return err
	}

	if flags.metricsFile != "" {
		if err := metrics.WriteTextfile(flags.metricsFile); err != nil {
			log.WithError(err).Error("Failed to write metrics")
			return err
		}
	}

	log.WithFields(map[string]any{
		"records":  len(records),
		"rejected": result.Stats.Rejected,
		"format":   format,
	}).Info("Wrote reconciliation result")
	return nil
}

func readInput(path string, stdin io.Reader) ([]map[string]any, error) {
	if path == "-" {
		return ingest.ReadRecords(stdin, ingest.RecordFormatJSON)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	return ingest.ReadRecords(f, ingest.FormatFromPath(path))
}

func outputFormat(flag, path string) export.Format {
	if flag != "" {
		return export.Format(strings.ToLower(flag))
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return export.FormatExcel
	}
	return export.FormatJSON
}

func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
