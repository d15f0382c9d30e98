// Package plot renders result series against the independent variable.
package plot

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/edp1096/spicesweep/pkg/raw"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

// SeriesPlot draws every series over the independent variable of set, one
// line per run. An empty title uses the result's plot name.
func SeriesPlot(set *raw.ResultSet, series []*raw.NodeSeries, title string) (*plot.Plot, error) {
	x := set.Independent()
	if x == nil {
		return nil, fmt.Errorf("result has no variables")
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("nothing to plot")
	}

	p := plot.New()
	p.Title.Text = title
	if title == "" {
		p.Title.Text = set.Plotname()
	}
	p.X.Label.Text = axisLabel(x.Name, x.Unit)
	if len(series) == 1 {
		p.Y.Label.Text = axisLabel(series[0].Name, series[0].Unit)
	} else {
		p.Y.Label.Text = axisLabel("", series[0].Unit)
	}
	p.Add(plotter.NewGrid())

	runs := set.Runs()
	color := 0
	for _, s := range series {
		if len(s.Samples) != len(x.Samples) {
			return nil, fmt.Errorf("%s has %d samples, %s has %d", s.Name, len(s.Samples), x.Name, len(x.Samples))
		}

		for k, run := range runs {
			xys := make(plotter.XYs, run.Len())
			for i := range xys {
				xys[i].X = x.Samples[run.Start+i]
				xys[i].Y = s.Samples[run.Start+i]
			}

			label := s.Name
			if len(runs) > 1 {
				label = fmt.Sprintf("%s #%d", s.Name, k+1)
			}

			if run.Len() == 1 {
				sc, err := plotter.NewScatter(xys)
				if err != nil {
					return nil, err
				}
				sc.Color = plotutil.Color(color)
				p.Add(sc)
				p.Legend.Add(label, sc)
			} else {
				l, err := plotter.NewLine(xys)
				if err != nil {
					return nil, err
				}
				l.Color = plotutil.Color(color)
				p.Add(l)
				p.Legend.Add(label, l)
			}
			color++
		}
	}
	return p, nil
}

func axisLabel(name string, unit raw.Unit) string {
	switch {
	case unit.String() == "":
		return name
	case name == "":
		return "[" + unit.String() + "]"
	default:
		return name + " [" + unit.String() + "]"
	}
}

// Save writes p to path in the format named by its extension (png, svg,
// pdf, eps, jpg, tif).
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}
