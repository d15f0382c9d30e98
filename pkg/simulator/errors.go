package simulator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSimulationFailed = errors.New("simulation failed")
	ErrTimeout          = errors.New("simulator timed out")
	ErrNoRawFile        = errors.New("simulator produced no raw file")
)

// SimulationError carries the log lines that reported the failure.
type SimulationError struct {
	Netlist string
	Lines   []string
	Err     error
}

func (e *SimulationError) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrSimulationFailed.Error())
	if e.Netlist != "" {
		fmt.Fprintf(&sb, " for %s", e.Netlist)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if len(e.Lines) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Lines, "; "))
	}
	return sb.String()
}

func (e *SimulationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSimulationFailed}
	}
	return []error{ErrSimulationFailed, e.Err}
}
