package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/edp1096/spicesweep/pkg/netlist"
	"github.com/edp1096/spicesweep/pkg/raw"
	"github.com/edp1096/spicesweep/pkg/sweep"
	"github.com/edp1096/spicesweep/pkg/util"
)

// parseAssignments reads NAME=VALUE arguments in order.
func parseAssignments(args []string) ([]netlist.Assignment, error) {
	out := make([]netlist.Assignment, 0, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected NAME=VALUE, got %q", arg)
		}
		out = append(out, netlist.Assignment{Name: name, Value: value})
	}
	return out, nil
}

// parseProbes reads NAME or NAME:KIND arguments.
func parseProbes(args []string) ([]sweep.Probe, error) {
	out := make([]sweep.Probe, 0, len(args))
	for _, arg := range args {
		name, kind, _ := strings.Cut(arg, ":")
		p := sweep.Probe{Name: name, Kind: kind}
		if _, err := p.LookupKind(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func lookup(rs *raw.ResultSet, probes []sweep.Probe) ([]*raw.NodeSeries, error) {
	if rs.Independent() == nil {
		return nil, fmt.Errorf("result has no variables")
	}
	if len(probes) == 0 {
		return rs.Series(), nil
	}
	out := make([]*raw.NodeSeries, 0, len(probes))
	for _, p := range probes {
		kind, err := p.LookupKind()
		if err != nil {
			return nil, err
		}
		s, err := rs.Value(p.Name, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// printResults prints operating points as name = value, and anything with
// more samples as a table against the independent variable.
func printResults(w io.Writer, rs *raw.ResultSet, series []*raw.NodeSeries, limit int) {
	title := rs.Plotname()
	if title == "" {
		title = "Results"
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)+1))

	x := rs.Independent()
	if rs.Points() <= 1 {
		for _, s := range append([]*raw.NodeSeries{x}, series...) {
			if v, ok := s.Last(); ok {
				fmt.Fprintf(w, "%-16s %s\n", s.Name, util.FormatValueFactor(v, s.Unit.String()))
			}
		}
		return
	}

	fmt.Fprintf(w, "%-14s", x.Name)
	for _, s := range series {
		fmt.Fprintf(w, "%-16s", s.Name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 14+16*len(series)))

	n := rs.Points()
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%-14s", util.FormatValueFactor(x.Samples[i], x.Unit.String()))
		for _, s := range series {
			fmt.Fprintf(w, "%-16s", util.FormatValueFactor(s.Samples[i], s.Unit.String()))
		}
		fmt.Fprintln(w)
	}
	if n < rs.Points() {
		fmt.Fprintf(w, "... %d more points\n", rs.Points()-n)
	}
}
