package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edp1096/spicesweep/internal/config"
	"github.com/edp1096/spicesweep/internal/logger"
	"github.com/edp1096/spicesweep/internal/metrics"
	"github.com/edp1096/spicesweep/pkg/simulator"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath  string
	logLevel    string
	pretty      bool
	metricsFile string

	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{log: logger.Nop()}

	root := &cobra.Command{
		Use:   "spicesweep",
		Short: "Edit LTspice netlist parameters, run them and read the results",
		Long: `spicesweep rewrites .param assignments in an LTspice netlist without
touching anything else, runs LTspice in batch mode and reads the ASCII raw
file it produces.

Examples:
  spicesweep params circuit.net
  spicesweep set circuit.net Rload0=1k Rload1=5k
  spicesweep run circuit.net Rload0=1k --probe test
  spicesweep show circuit.raw out R1:device
  spicesweep sweep plan.yaml -o results.csv`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsFile == "" || a.metrics == nil {
				return nil
			}
			return a.metrics.WriteTextfile(a.metricsFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "spicesweep.yaml", "config file (missing file means defaults)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.pretty, "pretty", false, "human readable logs")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newParamsCmd(a),
		newSetCmd(a),
		newRunCmd(a),
		newShowCmd(a),
		newPlotCmd(a),
		newSweepCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = logger.New(logger.Config{
		Level:  level,
		Pretty: a.pretty || cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	a.metrics = metrics.New()
	return nil
}

func (a *app) runner() *simulator.LTspice {
	sc := a.cfg.Simulator
	opts := []simulator.Option{
		simulator.WithExecutable(sc.Executable),
		simulator.WithTimeout(sc.Timeout),
		simulator.WithLogger(logger.Component(a.log, "simulator")),
		simulator.WithMetrics(a.metrics),
	}
	if len(sc.Args) > 0 {
		opts = append(opts, simulator.WithArgs(sc.Args...))
	}
	if sc.Wine != "" {
		opts = append(opts, simulator.WithWine(sc.Wine, sc.WinePrefix))
	}
	return simulator.NewLTspice(opts...)
}
