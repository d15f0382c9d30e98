package raw

import (
	"errors"
	"fmt"
)

// ErrBinaryRaw is returned for binary dumps; run LTspice with -ascii.
var ErrBinaryRaw = errors.New("binary raw files are not supported")

// MalformedRecordError reports a raw file line that does not have the
// expected shape. Line is 1-based.
type MalformedRecordError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("raw line %d: %s: %q", e.Line, e.Reason, e.Text)
}

type UnknownNodeError struct {
	Name string
	Kind LookupKind
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("no %s named %s in results", e.Kind, e.Name)
}

type InvalidLookupKindError struct {
	Kind string
}

func (e *InvalidLookupKindError) Error() string {
	return fmt.Sprintf("invalid lookup kind %q, want node or device", e.Kind)
}
