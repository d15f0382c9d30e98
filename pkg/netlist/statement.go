package netlist

import (
	"regexp"
	"strings"
)

// Statement is one name=value assignment found in a netlist line.
// Start and End delimit the assignment text inside the line, so a
// rewrite touches exactly those bytes.
type Statement struct {
	Name  string
	Value string
	Line  int
	Start int
	End   int
}

func (s Statement) String() string {
	return s.Name + "=" + s.Value
}

// Spaces (not tabs) are allowed around '='.
var assignmentRe = regexp.MustCompile(`\S+ *= *\S+`)

// ScanLine returns the assignments on a line in order of appearance, or
// nil when the line has none.
func ScanLine(line string, lineNo int) []Statement {
	matches := assignmentRe.FindAllStringIndex(line, -1)
	if matches == nil {
		return nil
	}

	var stmts []Statement
	for _, m := range matches {
		start, end := m[0], m[1]
		if line[start] == '+' { // continuation marker
			start++
		}

		text := strings.ReplaceAll(line[start:end], " ", "")
		name, value, _ := strings.Cut(text, "=")
		if name == "" || value == "" {
			continue
		}

		stmts = append(stmts, Statement{
			Name:  name,
			Value: value,
			Line:  lineNo,
			Start: start,
			End:   end,
		})
	}
	return stmts
}
