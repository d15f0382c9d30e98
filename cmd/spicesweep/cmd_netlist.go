package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edp1096/spicesweep/internal/logger"
	"github.com/edp1096/spicesweep/pkg/netlist"
	"github.com/edp1096/spicesweep/pkg/util"
)

func newParamsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "params <netlist>",
		Short: "List the parameters and analysis directive of a netlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := netlist.LoadFile(args[0], netlist.WithLogger(logger.Component(a.log, "netlist")))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Netlist: %s (%s)\n", doc.Name(), doc.Encoding())
			if dir := doc.Directive(); dir != nil {
				fmt.Fprintf(w, "Analysis: %s  %s  (line %d)\n", dir.Kind.Analysis(), dir, dir.Line+1)
				printDirectiveParams(w, dir)
			} else {
				fmt.Fprintln(w, "Analysis: none")
			}

			fmt.Fprintln(w, "\nParameters:")
			fmt.Fprintln(w, "===========")
			dups := make(map[string]bool)
			for _, name := range doc.Duplicates() {
				dups[name] = true
			}
			for _, name := range doc.Names() {
				for _, s := range doc.Occurrences(name) {
					mark := ""
					if dups[name] {
						mark = "  (duplicate)"
					}
					fmt.Fprintf(w, "%-16s %-12s line %d%s\n", s.Name, s.Value, s.Line+1, mark)
				}
			}
			return nil
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	var (
		output    string
		directive string
	)

	cmd := &cobra.Command{
		Use:   "set <netlist> NAME=VALUE...",
		Short: "Write a copy of a netlist with parameters changed",
		Long: `Write a copy of a netlist with parameters changed.

Assignments apply in the order given. The copy goes to <name>_new.net next
to the source unless -o is set. The source file is never modified.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}

			doc, err := deriveNetlist(a, args[0], changes, output, directive)
			if err != nil {
				return err
			}
			if err := doc.WriteFile(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), doc.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "path of the changed netlist")
	cmd.Flags().StringVar(&directive, "directive", "", `replace the analysis directive, e.g. ".tran 0 5m"`)
	return cmd
}

// deriveNetlist loads path and returns the changed copy, not yet written.
func deriveNetlist(a *app, path string, changes []netlist.Assignment, output, directive string) (*netlist.Document, error) {
	doc, err := netlist.LoadFile(path, netlist.WithLogger(logger.Component(a.log, "netlist")))
	if err != nil {
		return nil, err
	}

	derived, err := doc.ChangeParameters(changes, output)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordParameterChanges(len(changes))

	if fields := strings.Fields(directive); len(fields) > 0 {
		kind, err := netlist.ParseDirectiveKind(fields[0])
		if err != nil {
			return nil, err
		}
		if err := derived.ReplaceDirective(kind, strings.Join(fields[1:], " ")); err != nil {
			return nil, err
		}
	}
	return derived, nil
}

func printDirectiveParams(w io.Writer, dir *netlist.Directive) {
	switch dir.Kind {
	case netlist.DirectiveTran:
		p, err := dir.Tran()
		if err != nil {
			fmt.Fprintf(w, "  (%v)\n", err)
			return
		}
		fmt.Fprintf(w, "  stop %s, step %s", util.FormatValueFactor(p.TStop, "s"), util.FormatValueFactor(p.TStep, "s"))
		if p.UIC {
			fmt.Fprint(w, ", uic")
		}
		fmt.Fprintln(w)
	case netlist.DirectiveDC:
		p, err := dir.DC()
		if err != nil {
			fmt.Fprintf(w, "  (%v)\n", err)
			return
		}
		fmt.Fprintf(w, "  %s from %s to %s by %s\n", p.Source, util.FormatSpice(p.Start), util.FormatSpice(p.Stop), util.FormatSpice(p.Increment))
	}
}
