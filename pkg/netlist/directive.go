package netlist

import (
	"fmt"
	"strings"
)

type DirectiveKind int

const (
	DirectiveOP   DirectiveKind = iota // .op
	DirectiveDC                        // .dc
	DirectiveTran                      // .tran
)

var directiveKeywords = map[DirectiveKind]string{
	DirectiveOP:   ".op",
	DirectiveDC:   ".dc",
	DirectiveTran: ".tran",
}

var keywordKinds = map[string]DirectiveKind{
	".op":   DirectiveOP,
	".dc":   DirectiveDC,
	".tran": DirectiveTran,
}

// String returns the directive keyword.
func (k DirectiveKind) String() string {
	if kw, ok := directiveKeywords[k]; ok {
		return kw
	}
	return fmt.Sprintf("DirectiveKind(%d)", int(k))
}

// Analysis returns the analysis name LTspice prints for the directive.
func (k DirectiveKind) Analysis() string {
	switch k {
	case DirectiveOP:
		return "Operating Point"
	case DirectiveDC:
		return "DC transfer characteristic"
	case DirectiveTran:
		return "Transient Analysis"
	default:
		return "unknown"
	}
}

// ParseDirectiveKind accepts a keyword with or without the leading period.
func ParseDirectiveKind(s string) (DirectiveKind, error) {
	kw := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(kw, ".") {
		kw = "." + kw
	}
	if kind, ok := keywordKinds[kw]; ok {
		return kind, nil
	}
	return 0, fmt.Errorf("unsupported analysis type: %s", s)
}

// Directive is the analysis card of a netlist.
type Directive struct {
	Kind    DirectiveKind
	Keyword string // as written in the file
	Params  string // trailing tokens joined by single spaces
	Line    int
}

func (d Directive) String() string {
	if d.Params == "" {
		return d.Keyword
	}
	return d.Keyword + " " + d.Params
}

// MatchDirective recognizes .op, .dc and .tran cards. Lines starting with
// ';' or '*' are comments and never match.
func MatchDirective(line string, lineNo int) (*Directive, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "*") {
		return nil, false
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 1 {
		return nil, false
	}

	kind, ok := keywordKinds[strings.ToLower(fields[0])]
	if !ok {
		return nil, false
	}

	return &Directive{
		Kind:    kind,
		Keyword: fields[0],
		Params:  strings.Join(fields[1:], " "),
		Line:    lineNo,
	}, true
}

// TranParams are the numeric fields of a .tran card.
type TranParams struct {
	TStep  float64
	TStop  float64
	TStart float64
	TMax   float64
	UIC    bool
}

// Tran parses Params as ".tran tstep tstop [tstart [tmax]] [uic]". LTspice
// also accepts ".tran tstop" alone, which leaves TStep at zero.
func (d Directive) Tran() (TranParams, error) {
	var p TranParams
	if d.Kind != DirectiveTran {
		return p, fmt.Errorf("%s is not a transient directive", d.Keyword)
	}

	var nums []string
	for _, f := range strings.Fields(d.Params) {
		if strings.EqualFold(f, "uic") {
			p.UIC = true
			continue
		}
		nums = append(nums, f)
	}
	if len(nums) == 0 {
		return p, fmt.Errorf("insufficient tran parameters, need at least tstop")
	}
	if len(nums) == 1 {
		nums = []string{"0", nums[0]}
	}

	targets := []*float64{&p.TStep, &p.TStop, &p.TStart, &p.TMax}
	names := []string{"tstep", "tstop", "tstart", "tmax"}
	for i, f := range nums {
		if i >= len(targets) {
			break
		}
		v, err := ParseValue(f)
		if err != nil {
			return p, fmt.Errorf("invalid %s: %v", names[i], err)
		}
		*targets[i] = v
	}
	if p.TMax == 0 {
		p.TMax = p.TStep
	}
	return p, nil
}

// DCParams are the first source sweep of a .dc card.
type DCParams struct {
	Source    string
	Start     float64
	Stop      float64
	Increment float64
}

// DC parses the first sweep of ".dc src start stop incr [src2 ...]".
func (d Directive) DC() (DCParams, error) {
	var p DCParams
	if d.Kind != DirectiveDC {
		return p, fmt.Errorf("%s is not a DC sweep directive", d.Keyword)
	}

	fields := strings.Fields(d.Params)
	if len(fields) < 4 {
		return p, fmt.Errorf("insufficient DC sweep parameters")
	}
	p.Source = fields[0]

	var err error
	if p.Start, err = ParseValue(fields[1]); err != nil {
		return p, fmt.Errorf("invalid start value: %v", err)
	}
	if p.Stop, err = ParseValue(fields[2]); err != nil {
		return p, fmt.Errorf("invalid stop value: %v", err)
	}
	if p.Increment, err = ParseValue(fields[3]); err != nil {
		return p, fmt.Errorf("invalid increment value: %v", err)
	}
	return p, nil
}
