package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chazu/dfmcheck/pkg/config"
	"github.com/chazu/dfmcheck/pkg/dfm"
	"github.com/chazu/dfmcheck/pkg/metrics"
	"github.com/chazu/dfmcheck/pkg/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configPath string
	verbose    bool
	process    string
	format     string
	timeout    time.Duration

	// check flags
	metricsFile string
	strict      bool

	cfg    config.Config
	logger *zap.Logger
)

// errNotManufacturable makes --strict runs exit non-zero.
var errNotManufacturable = errors.New("model has blocking issues")

var rootCmd = &cobra.Command{
	Use:   "dfmcheck",
	Short: "Design-for-manufacturing checks for CNC, injection molding and FDM",
	Long: `dfmcheck evaluates a model script, builds its solids and checks them
against the manufacturability rules of a process.

Model scripts are Lisp:

  (defpart "plate" (drill (box 60 40 6) :at (vec3 15 20 0) :diameter 6))`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("process") {
			cfg.Process = process
		}
		if cmd.Flags().Changed("format") {
			cfg.Format = format
		}
		if cmd.Flags().Changed("timeout") {
			cfg.Timeout = timeout
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = cfg.Logger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <model.lisp>",
	Short: "Check a model against the rules of a process",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules applied for a process",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := cfg.ProcessValue()
		if err != nil {
			return err
		}
		return report.WriteRules(cmd.OutOrStdout(), p)
	},
}

var physicalCmd = &cobra.Command{
	Use:   "physical <model.lisp>",
	Short: "Print volume, mass and center of gravity of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := NewApp(cfg, logger, nil)
		m, err := app.LoadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return report.WritePhysical(cmd.OutOrStdout(), app.Physical(m), m.Names(), report.Format(cfg.Format))
	},
}

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := cfg.ProcessValue()
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if metricsFile != "" {
		if rec, err = metrics.New(); err != nil {
			return err
		}
	}

	app := NewApp(cfg, logger, rec)
	r, err := app.CheckFile(cmd.Context(), args[0], p)
	if err != nil {
		return err
	}
	if err := report.Write(cmd.OutOrStdout(), r, report.Format(cfg.Format)); err != nil {
		return err
	}
	if rec != nil {
		if err := rec.WriteFile(metricsFile); err != nil {
			return err
		}
	}
	if strict && !r.Summary.Manufacturable {
		return errNotManufacturable
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().StringVarP(&process, "process", "p", string(dfm.CNCMachining), "Manufacturing process (cnc, injection-molding, fdm)")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Limit for script evaluation and analysis (0 disables)")

	checkCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file")
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the model has ERROR issues")

	rootCmd.AddCommand(checkCmd, rulesCmd, physicalCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
