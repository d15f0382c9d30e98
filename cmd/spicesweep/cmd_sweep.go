package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/edp1096/spicesweep/internal/logger"
	"github.com/edp1096/spicesweep/pkg/sweep"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		output   string
		workers  int
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep <plan.yaml>",
		Short: "Run a netlist once per point of a sweep plan",
		Long: `Run a netlist once per point of a sweep plan and write a CSV summary.

A plan names the netlist, explicit points and/or grid axes, and the probes
whose final value goes into the CSV:

  netlist: Photoresistor_Array.net
  output: runs
  points:
    - {R01: 5k, R11: 10k}
  grid:
    R00: [1k, 2k]
    Rload: {start: 1k, stop: 10k, step: 1k}
  probes:
    - {name: out}
    - {name: Rload, kind: device}

With --watch the sweep reruns whenever the plan or the netlist changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers <= 0 {
				workers = a.cfg.Sweep.Workers
			}

			run := func(ctx context.Context) ([]string, error) {
				plan, err := sweep.LoadPlan(args[0])
				if err != nil {
					return nil, err
				}
				if len(plan.Probes) == 0 {
					for _, p := range a.cfg.Sweep.Probes {
						plan.Probes = append(plan.Probes, sweep.Probe{Name: p.Name, Kind: p.Kind})
					}
				}

				opts := []sweep.Option{
					sweep.WithWorkers(workers),
					sweep.WithLogger(logger.Component(a.log, "sweep")),
					sweep.WithMetrics(a.metrics),
				}
				if a.cfg.Simulator.KeepLogs != "" {
					opts = append(opts, sweep.WithLogDir(a.cfg.Simulator.KeepLogs))
				}

				s, err := sweep.NewSession(plan, a.runner(), opts...)
				if err != nil {
					return nil, err
				}
				results, err := s.Run(ctx)
				if err != nil {
					return nil, err
				}

				if err := writeSummary(cmd.OutOrStdout(), output, results, plan.Probes); err != nil {
					return nil, err
				}
				return []string{args[0], plan.Netlist}, nil
			}

			files, err := run(cmd.Context())
			if !watch {
				return err
			}
			if err != nil {
				a.log.Error().Err(err).Msg("sweep failed")
				files = []string{args[0]}
			}

			a.log.Info().Strs("files", files).Msg("watching for changes")
			err = sweep.Watch(cmd.Context(), files, debounce, a.log, func(changed []string) error {
				a.log.Info().Strs("changed", changed).Msg("rerunning sweep")
				if _, err := run(cmd.Context()); err != nil {
					a.log.Error().Err(err).Msg("sweep failed")
				}
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "CSV file, stdout when empty")
	cmd.Flags().IntVarP(&workers, "workers", "j", 0, "simulations to run at once, defaults to the config")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "rerun when the plan or netlist changes")
	cmd.Flags().DurationVar(&debounce, "debounce", sweep.DefaultDebounce, "quiet time before a rerun")
	return cmd
}

func writeSummary(stdout io.Writer, path string, results []sweep.PointResult, probes []sweep.Probe) error {
	if path == "" {
		return sweep.WriteCSV(stdout, results, probes)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sweep.WriteCSV(f, results, probes); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}
