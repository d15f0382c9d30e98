package netlist

import (
	"errors"
	"fmt"
)

var ErrNoDirective = errors.New("netlist has no simulation directive")

// MalformedSourceError is returned when netlist input cannot be read or decoded.
type MalformedSourceError struct {
	Path string
	Err  error
}

func (e *MalformedSourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed netlist: %v", e.Err)
	}
	return fmt.Sprintf("malformed netlist %s: %v", e.Path, e.Err)
}

func (e *MalformedSourceError) Unwrap() error { return e.Err }

// UnknownParameterError is returned when a mutation names a parameter the
// netlist does not assign.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("no such parameter in netlist: %s", e.Name)
}

// InvalidValueError is returned for replacement values that would not form
// a single assignment token.
type InvalidValueError struct {
	Name  string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value %q for parameter %s", e.Value, e.Name)
}
