package raw

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Unit int

const (
	UnitNone Unit = iota
	UnitVoltage
	UnitCurrent
	UnitTime
)

func (u Unit) String() string {
	switch u {
	case UnitVoltage:
		return "V"
	case UnitCurrent:
		return "A"
	case UnitTime:
		return "s"
	default:
		return ""
	}
}

// unitOf classifies a variable by its type descriptor.
func unitOf(typ string) Unit {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "voltage"):
		return UnitVoltage
	case strings.Contains(t, "current"):
		return UnitCurrent
	case strings.Contains(t, "time"):
		return UnitTime
	default:
		return UnitNone
	}
}

// NodeSeries holds every sample of one declared variable.
type NodeSeries struct {
	Name    string
	Index   int
	Type    string
	Unit    Unit
	Samples []float64
}

func (s *NodeSeries) String() string {
	if len(s.Samples) == 1 {
		return fmt.Sprintf("%s = %g %s", s.Name, s.Samples[0], s.Unit)
	}
	return fmt.Sprintf("%s (%d samples) %s", s.Name, len(s.Samples), s.Unit)
}

// Last returns the final sample, which is the result of an operating point.
func (s *NodeSeries) Last() (float64, bool) {
	if len(s.Samples) == 0 {
		return 0, false
	}
	return s.Samples[len(s.Samples)-1], true
}

type LookupKind int

const (
	KindNode LookupKind = iota
	KindDevice
)

func (k LookupKind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindDevice:
		return "device"
	default:
		return fmt.Sprintf("LookupKind(%d)", int(k))
	}
}

func ParseLookupKind(s string) (LookupKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "node":
		return KindNode, nil
	case "device":
		return KindDevice, nil
	default:
		return 0, &InvalidLookupKindError{Kind: s}
	}
}

// ResultSet is the parsed content of one raw file. It is read-only once
// Parse returns.
type ResultSet struct {
	path        string
	header      map[string]string
	independent *NodeSeries
	series      map[string]*NodeSeries
	boundaries  []int
}

func (r *ResultSet) Path() string { return r.path }

// Header returns the "Key: value" lines that precede the declarations.
func (r *ResultSet) Header() map[string]string {
	out := make(map[string]string, len(r.header))
	for k, v := range r.header {
		out[k] = v
	}
	return out
}

// Plotname is the analysis name LTspice wrote, e.g. "Transient Analysis".
func (r *ResultSet) Plotname() string { return r.header["Plotname"] }

// Independent returns the first declared variable.
func (r *ResultSet) Independent() *NodeSeries { return r.independent }

// Names returns the dependent variable names, sorted.
func (r *ResultSet) Names() []string {
	names := make([]string, 0, len(r.series))
	for name := range r.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series returns every dependent variable in declaration order.
func (r *ResultSet) Series() []*NodeSeries {
	out := make([]*NodeSeries, 0, len(r.series))
	for _, s := range r.series {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Value looks up a node voltage (name lowered) or a device current (name
// capitalized). The independent variable matches too, since operating
// point dumps may declare a node voltage first.
func (r *ResultSet) Value(name string, kind LookupKind) (*NodeSeries, error) {
	var key string
	switch kind {
	case KindNode:
		key = strings.ToLower(name)
	case KindDevice:
		key = capitalize(name)
	default:
		return nil, &InvalidLookupKindError{Kind: kind.String()}
	}

	if s, ok := r.series[key]; ok {
		return s, nil
	}
	if r.independent != nil && r.independent.Name == key {
		return r.independent, nil
	}
	return nil, &UnknownNodeError{Name: name, Kind: kind}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	first, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(first)) + strings.ToLower(s[size:])
}

// StepBoundaries returns the sample index at which each step starts.
func (r *ResultSet) StepBoundaries() []int {
	return append([]int(nil), r.boundaries...)
}

func (r *ResultSet) StepCount() int { return len(r.boundaries) }

// Step returns the samples of s that belong to step i.
func (r *ResultSet) Step(s *NodeSeries, i int) ([]float64, error) {
	if i < 0 || i >= len(r.boundaries) {
		return nil, fmt.Errorf("step %d out of range [0,%d)", i, len(r.boundaries))
	}
	if s == nil {
		return nil, fmt.Errorf("step %d of nil series", i)
	}
	end := len(s.Samples)
	if i+1 < len(r.boundaries) {
		end = r.boundaries[i+1]
	}
	if end > len(s.Samples) || r.boundaries[i] > end {
		return nil, fmt.Errorf("%s has %d samples, step %d needs [%d,%d)", s.Name, len(s.Samples), i, r.boundaries[i], end)
	}
	return s.Samples[r.boundaries[i]:end], nil
}

// Run is a contiguous range of samples over which the independent variable
// does not decrease.
type Run struct {
	Start int
	End   int
}

func (r Run) Len() int { return r.End - r.Start }

// Runs splits the result wherever the independent variable decreases.
// A .step simulation restarts time for every stepped value, so each run
// is one curve.
func (r *ResultSet) Runs() []Run {
	if r.independent == nil || len(r.independent.Samples) == 0 {
		return nil
	}

	x := r.independent.Samples
	var runs []Run
	start := 0
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			runs = append(runs, Run{Start: start, End: i})
			start = i
		}
	}
	return append(runs, Run{Start: start, End: len(x)})
}

// Points returns the number of samples per variable.
func (r *ResultSet) Points() int {
	if r.independent == nil {
		return 0
	}
	return len(r.independent.Samples)
}
