// Package raw reads the ASCII result files LTspice writes with -ascii.
package raw

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/spicesweep/internal/textenc"
)

type parseState int

const (
	stateSeekHeader parseState = iota
	stateDeclarations
	stateValues
)

var (
	sampleRe     = regexp.MustCompile(`-?\d\.\d+e[-+]\d+`)
	stepMarkerRe = regexp.MustCompile(`^\d+(\s|$)`)
)

// ParseFile parses the raw file at path.
func ParseFile(path string) (*ResultSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rs.path = path
	return rs, nil
}

// Parse reads an ASCII raw dump. On any error no result set is returned.
//
// Besides unreadable lines, a step marker that arrives before every
// variable of the current step has a sample, and a final step cut short,
// are *MalformedRecordError: each series must hold one sample per point.
func Parse(r io.Reader) (*ResultSet, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text, _, err := textenc.Decode(b)
	if err != nil {
		return nil, err
	}

	p := &parser{
		rs: &ResultSet{
			header: make(map[string]string),
			series: make(map[string]*NodeSeries),
		},
	}
	for i, line := range strings.Split(text, "\n") {
		if err := p.line(i+1, strings.TrimRight(line, "\r")); err != nil {
			return nil, err
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.rs, nil
}

type parser struct {
	rs       *ResultSet
	state    parseState
	order    []*NodeSeries // declaration order, independent first
	cursor   int
	samples  int
	lastLine int
	lastText string
}

func (p *parser) line(n int, line string) error {
	switch {
	case strings.Contains(line, "Variables:") && !strings.Contains(line, "No. Variables"):
		p.state = stateDeclarations
		return nil
	case strings.Contains(line, "Values:"):
		if len(p.order) == 0 {
			return &MalformedRecordError{Line: n, Text: line, Reason: "values before any variable declaration"}
		}
		p.state = stateValues
		return nil
	case p.state != stateValues && strings.HasPrefix(strings.TrimSpace(line), "Binary:"):
		return ErrBinaryRaw
	}

	if strings.TrimSpace(line) == "" {
		return nil
	}

	switch p.state {
	case stateSeekHeader:
		if key, value, ok := strings.Cut(line, ":"); ok {
			p.rs.header[strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	case stateDeclarations:
		return p.declaration(n, line)
	case stateValues:
		return p.value(n, line)
	}
	return nil
}

func (p *parser) declaration(n int, line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return &MalformedRecordError{Line: n, Text: line, Reason: "declaration needs index, name and type"}
	}

	idx, err := strconv.Atoi(fields[0])
	if err != nil {
		return &MalformedRecordError{Line: n, Text: line, Reason: "declaration index is not an integer"}
	}

	name := fields[1]
	if open := strings.IndexByte(name, '('); open >= 0 {
		inner := name[open+1:]
		if end := strings.IndexByte(inner, ')'); end >= 0 {
			inner = inner[:end]
		}
		name = inner
	}

	typ := strings.Join(fields[2:], " ")
	s := &NodeSeries{Name: name, Index: idx, Type: typ, Unit: unitOf(typ)}

	if p.rs.independent == nil {
		p.rs.independent = s
	} else {
		p.rs.series[name] = s
	}
	p.order = append(p.order, s)
	return nil
}

func (p *parser) value(n int, line string) error {
	if stepMarkerRe.MatchString(line) {
		if p.cursor != 0 {
			return &MalformedRecordError{Line: n, Text: line,
				Reason: fmt.Sprintf("new step after %d of %d variables", p.cursor, len(p.order))}
		}
		p.rs.boundaries = append(p.rs.boundaries, p.samples)
	} else if len(p.rs.boundaries) == 0 {
		p.rs.boundaries = append(p.rs.boundaries, 0)
	}

	m := sampleRe.FindString(line)
	if m == "" {
		return &MalformedRecordError{Line: n, Text: line, Reason: "no numeric sample"}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return &MalformedRecordError{Line: n, Text: line, Reason: err.Error()}
	}

	s := p.order[p.cursor]
	s.Samples = append(s.Samples, v)
	p.cursor++
	if p.cursor == len(p.order) {
		p.cursor = 0
		p.samples++
	}

	p.lastLine, p.lastText = n, line
	return nil
}

func (p *parser) finish() error {
	if p.cursor != 0 {
		return &MalformedRecordError{Line: p.lastLine, Text: p.lastText,
			Reason: fmt.Sprintf("last step ends after %d of %d variables", p.cursor, len(p.order))}
	}
	return nil
}
