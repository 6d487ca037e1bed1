package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ito-project/ito/pkg/color"
	"github.com/ito-project/ito/pkg/config"
	"github.com/ito-project/ito/pkg/logging"
	"github.com/ito-project/ito/pkg/metrics"
)

var (
	jsonOutput      bool
	noColor         bool
	logLevel        string
	metricsTextfile string

	rootCmd = &cobra.Command{
		Use:   "ito",
		Short: "ito - change proposals with an audit trail",
		Long: `ito manages change proposals and their tasks. Every state transition is
recorded in an append-only audit log (.ito/.state/audit/events.jsonl) that can
be replayed, reconciled against the files on disk, validated, and streamed
live across git worktrees.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupAmbient,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if ferr := flushMetrics(); ferr != nil {
		fmtErr("write metrics: %v", ferr)
	}
	if err != nil {
		fmtErr("%v", err)
		os.Exit(1)
	}
}

// setupAmbient configures color and logging before any command runs. The
// project config, when one is found, supplies the log format and the level
// unless --log-level was given.
func setupAmbient(cmd *cobra.Command, _ []string) error {
	color.Init(noColor)

	level, format := logLevel, "text"
	if p, err := discoverProject(); err == nil {
		if cfg, err := config.Load(p.ItoDir); err == nil {
			if !cmd.Flags().Changed("log-level") && cfg.Logging.Level != "" {
				level = cfg.Logging.Level
			}
			if cfg.Logging.Format != "" {
				format = cfg.Logging.Format
			}
		}
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	logging.Global().SetLevel(lvl)
	return logging.Global().SetFormat(format)
}

func flushMetrics() error {
	if metricsTextfile == "" {
		return nil
	}
	return metrics.Default().WriteTextfile(metricsTextfile)
}

// compactJSON renders v on one line.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fmtErr(format string, args ...any) {
	prefix := "ito: "
	if color.Enabled() {
		prefix = color.Error("ito:") + " "
	}
	fmt.Fprintf(os.Stderr, prefix+format+"\n", args...)
}
