package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edp1096/spicesweep/internal/logger"
	"github.com/edp1096/spicesweep/pkg/plot"
	"github.com/edp1096/spicesweep/pkg/raw"
	"github.com/edp1096/spicesweep/pkg/simulator"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		output    string
		directive string
		probes    []string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "run <netlist> [NAME=VALUE...]",
		Short: "Simulate a netlist, optionally with parameters changed",
		Long: `Simulate a netlist with LTspice and print the results.

With assignments, a changed copy is written first (see "set") and that copy
is simulated. Probes are NAME for a node voltage or NAME:device for a device
current; without probes every variable is printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			ps, err := parseProbes(probes)
			if err != nil {
				return err
			}

			path := args[0]
			if len(changes) > 0 || directive != "" || output != "" {
				doc, err := deriveNetlist(a, path, changes, output, directive)
				if err != nil {
					return err
				}
				if err := doc.WriteFile(); err != nil {
					return err
				}
				path = doc.Path()
			}

			out, err := a.runner().Run(cmd.Context(), path)
			if err != nil {
				return err
			}
			if dir := a.cfg.Simulator.KeepLogs; dir != "" {
				if _, err := simulator.CopyLog(out.LogPath, out.LogLines, dir); err != nil {
					a.log.Warn().Err(err).Msg("keeping log")
				}
			}

			rs, err := out.Results()
			a.metrics.RecordRawParse(err)
			if err != nil {
				return err
			}
			series, err := lookup(rs, ps)
			if err != nil {
				return err
			}
			printResults(cmd.OutOrStdout(), rs, series, limit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "path of the changed netlist")
	cmd.Flags().StringVar(&directive, "directive", "", "replace the analysis directive")
	cmd.Flags().StringArrayVarP(&probes, "probe", "p", nil, "series to print, NAME or NAME:device")
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to print for multi-point results, 0 for all")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show <raw> [NAME[:device]...]",
		Short: "Print series from an ASCII raw file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := parseProbes(args[1:])
			if err != nil {
				return err
			}

			rs, err := raw.ParseFile(args[0])
			a.metrics.RecordRawParse(err)
			if err != nil {
				return err
			}
			series, err := lookup(rs, ps)
			if err != nil {
				return err
			}

			a.log.Debug().Str("raw", args[0]).Int("points", rs.Points()).Int("steps", rs.StepCount()).Msg("parsed")
			printResults(cmd.OutOrStdout(), rs, series, limit)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "rows to print for multi-point results, 0 for all")
	return cmd
}

func newPlotCmd(a *app) *cobra.Command {
	var (
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "plot <raw> NAME[:device]...",
		Short: "Plot series from an ASCII raw file",
		Long: `Plot series against the independent variable. Stepped results get one
line per step. The image format follows the -o extension (png, svg, pdf).`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := parseProbes(args[1:])
			if err != nil {
				return err
			}

			rs, err := raw.ParseFile(args[0])
			a.metrics.RecordRawParse(err)
			if err != nil {
				return err
			}
			series, err := lookup(rs, ps)
			if err != nil {
				return err
			}

			p, err := plot.SeriesPlot(rs, series, title)
			if err != nil {
				return err
			}
			if err := plot.Save(p, output); err != nil {
				return err
			}

			plog := logger.Component(a.log, "plot")
			plog.Info().Str("file", output).Int("runs", len(rs.Runs())).Msg("plot written")
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "plot.png", "image file")
	cmd.Flags().StringVar(&title, "title", "", "plot title, defaults to the analysis name")
	return cmd
}
