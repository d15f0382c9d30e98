// Package sweep runs a netlist once per set of parameter values and
// collects the requested series from every result.
package sweep

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edp1096/spicesweep/pkg/netlist"
	"github.com/edp1096/spicesweep/pkg/raw"
	"github.com/edp1096/spicesweep/pkg/util"
)

// Plan describes a sweep. Explicit points run first, then the cartesian
// product of the grid axes, first axis slowest.
type Plan struct {
	Netlist   string  `yaml:"netlist"`
	Output    string  `yaml:"output,omitempty"`
	Directive string  `yaml:"directive,omitempty"`
	Points    []Point `yaml:"points,omitempty"`
	Grid      Grid    `yaml:"grid,omitempty"`
	Probes    []Probe `yaml:"probes,omitempty"`
}

// Point is one ordered set of assignments, written in YAML as a mapping.
type Point []netlist.Assignment

func (p *Point) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: point must be a mapping of parameter to value", node.Line)
	}
	out := make(Point, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %s must be a scalar", v.Line, k.Value)
		}
		out = append(out, netlist.Assignment{Name: k.Value, Value: v.Value})
	}
	*p = out
	return nil
}

func (p Point) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, a := range p {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: a.Value})
	}
	return node, nil
}

func (p Point) String() string {
	parts := make([]string, len(p))
	for i, a := range p {
		parts[i] = a.String()
	}
	return strings.Join(parts, " ")
}

// Axis is one swept parameter and its values in netlist notation.
type Axis struct {
	Name   string
	Values []string
}

// Grid keeps its axes in file order. Each axis is either a list of values
// or a {start, stop, step} range.
type Grid []Axis

type rangeSpec struct {
	Start string `yaml:"start"`
	Stop  string `yaml:"stop"`
	Step  string `yaml:"step"`
}

func (g *Grid) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: grid must be a mapping of parameter to values", node.Line)
	}

	out := make(Grid, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		axis := Axis{Name: k.Value}

		switch v.Kind {
		case yaml.SequenceNode:
			if err := v.Decode(&axis.Values); err != nil {
				return fmt.Errorf("grid %s: %w", k.Value, err)
			}
		case yaml.MappingNode:
			var r rangeSpec
			if err := v.Decode(&r); err != nil {
				return fmt.Errorf("grid %s: %w", k.Value, err)
			}
			values, err := expandRange(r)
			if err != nil {
				return fmt.Errorf("grid %s: %w", k.Value, err)
			}
			axis.Values = values
		case yaml.ScalarNode:
			axis.Values = []string{v.Value}
		default:
			return fmt.Errorf("line %d: grid %s must be a list or a range", v.Line, k.Value)
		}

		if len(axis.Values) == 0 {
			return fmt.Errorf("grid %s has no values", k.Value)
		}
		out = append(out, axis)
	}
	*g = out
	return nil
}

func (g Grid) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, axis := range g {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range axis.Values {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: axis.Name}, seq)
	}
	return node, nil
}

// maxRangeValues bounds a single range axis.
const maxRangeValues = 10000

// expandRange lists start, start+step, ... up to and including stop.
func expandRange(r rangeSpec) ([]string, error) {
	start, err := netlist.ParseValue(r.Start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	stop, err := netlist.ParseValue(r.Stop)
	if err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}
	step, err := netlist.ParseValue(r.Step)
	if err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	if step == 0 || (stop-start)/step < 0 {
		return nil, fmt.Errorf("step %s does not move from %s to %s", r.Step, r.Start, r.Stop)
	}

	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	if n > maxRangeValues {
		return nil, fmt.Errorf("range has %d values, limit is %d", n, maxRangeValues)
	}

	values := make([]string, n)
	for i := range values {
		values[i] = util.FormatSpice(start + float64(i)*step)
	}
	return values, nil
}

// Probe is a series collected from every point's result.
type Probe struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind,omitempty"`
}

func (p Probe) LookupKind() (raw.LookupKind, error) {
	if p.Kind == "" {
		return raw.KindNode, nil
	}
	return raw.ParseLookupKind(p.Kind)
}

// Label names the probe in tables, e.g. V(out) or I(R1).
func (p Probe) Label() string {
	kind, _ := p.LookupKind()
	if kind == raw.KindDevice {
		return "I(" + p.Name + ")"
	}
	return "V(" + p.Name + ")"
}

// LoadPlan reads a YAML plan. Relative netlist and output paths are
// resolved against the plan's directory.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if p.Netlist != "" && !filepath.IsAbs(p.Netlist) {
		p.Netlist = filepath.Join(dir, p.Netlist)
	}
	if p.Output != "" && !filepath.IsAbs(p.Output) {
		p.Output = filepath.Join(dir, p.Output)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func (p *Plan) Validate() error {
	if p.Netlist == "" {
		return fmt.Errorf("plan has no netlist")
	}
	for i, pr := range p.Probes {
		if pr.Name == "" {
			return fmt.Errorf("probes[%d]: name must be set", i)
		}
		if _, err := pr.LookupKind(); err != nil {
			return fmt.Errorf("probes[%d]: %w", i, err)
		}
	}
	if p.Directive != "" {
		if _, _, err := p.directive(); err != nil {
			return err
		}
	}
	for _, axis := range p.Grid {
		if len(axis.Values) == 0 {
			return fmt.Errorf("grid %s has no values", axis.Name)
		}
	}
	return nil
}

func (p *Plan) directive() (netlist.DirectiveKind, string, error) {
	fields := strings.Fields(p.Directive)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("directive is blank")
	}
	kind, err := netlist.ParseDirectiveKind(fields[0])
	if err != nil {
		return 0, "", err
	}
	return kind, strings.Join(fields[1:], " "), nil
}

// Expand lists every point of the plan in run order. A plan with neither
// points nor grid runs the netlist once unchanged.
func (p *Plan) Expand() []Point {
	out := append([]Point(nil), p.Points...)

	if len(p.Grid) > 0 {
		idx := make([]int, len(p.Grid))
		for {
			pt := make(Point, len(p.Grid))
			for i, axis := range p.Grid {
				pt[i] = netlist.Assignment{Name: axis.Name, Value: axis.Values[idx[i]]}
			}
			out = append(out, pt)

			// odometer, last axis fastest
			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(p.Grid[i].Values) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				break
			}
		}
	}

	if len(out) == 0 {
		out = append(out, Point{})
	}
	return out
}

// Save writes the plan as YAML.
func (p *Plan) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
