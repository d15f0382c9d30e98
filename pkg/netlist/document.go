package netlist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/edp1096/spicesweep/internal/textenc"
)

// Document is a netlist held as its original lines. Only parameter
// assignments and the analysis directive are understood; every other byte
// is carried through untouched.
type Document struct {
	name      string
	path      string
	lines     []string
	stmts     [][]Statement // per line, in order of appearance
	byName    map[string][]Statement
	directive *Directive
	eol       string
	encoding  textenc.Encoding
	log       zerolog.Logger
}

// Assignment is one requested parameter change.
type Assignment struct {
	Name  string
	Value string
}

func (a Assignment) String() string {
	return a.Name + "=" + a.Value
}

// Assignments converts a map into name-sorted assignments.
func Assignments(m map[string]string) []Assignment {
	out := make([]Assignment, 0, len(m))
	for name, value := range m {
		out = append(out, Assignment{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type Option func(*Document)

// WithLogger sets the logger used for duplicate warnings and mutations.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Document) {
		d.log = l
	}
}

// LoadFile reads and indexes the netlist at path.
func LoadFile(path string, opts ...Option) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MalformedSourceError{Path: path, Err: err}
	}
	defer f.Close()

	return Load(f, path, opts...)
}

// Load reads a netlist from r. path names the document and is where
// WriteFile persists it; it may be empty.
func Load(r io.Reader, path string, opts ...Option) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedSourceError{Path: path, Err: err}
	}

	text, enc, err := textenc.Decode(b)
	if err != nil {
		return nil, &MalformedSourceError{Path: path, Err: err}
	}

	d := Parse(text, path, opts...)
	d.encoding = enc
	return d, nil
}

// Parse indexes netlist text already in memory.
func Parse(text, path string, opts ...Option) *Document {
	d := &Document{
		eol: "\n",
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.setPath(path)

	if idx := strings.IndexByte(text, '\n'); idx > 0 && text[idx-1] == '\r' {
		d.eol = "\r\n"
	}

	if text != "" {
		d.lines = strings.Split(text, "\n")
		if d.lines[len(d.lines)-1] == "" {
			d.lines = d.lines[:len(d.lines)-1]
		}
		if d.eol == "\r\n" {
			for i, line := range d.lines {
				d.lines[i] = strings.TrimSuffix(line, "\r")
			}
		}
	}

	d.stmts = make([][]Statement, len(d.lines))
	for i, line := range d.lines {
		d.stmts[i] = ScanLine(line, i)
		if d.directive == nil {
			if dir, ok := MatchDirective(line, i); ok {
				d.directive = dir
			}
		}
	}
	d.reindex()

	for _, name := range d.Duplicates() {
		d.log.Warn().
			Str("netlist", d.name).
			Str("parameter", name).
			Int("occurrences", len(d.byName[name])).
			Msg("parameter assigned more than once; changes apply to every occurrence")
	}

	return d
}

func (d *Document) reindex() {
	d.byName = make(map[string][]Statement)
	for _, stmts := range d.stmts {
		for _, s := range stmts {
			d.byName[s.Name] = append(d.byName[s.Name], s)
		}
	}
}

func (d *Document) setPath(path string) {
	d.path = path
	if path != "" {
		d.name = filepath.Base(path)
	}
}

func (d *Document) Name() string { return d.name }

func (d *Document) Path() string { return d.path }

func (d *Document) Encoding() textenc.Encoding { return d.encoding }

func (d *Document) String() string { return d.name }

// Lines returns a copy of the netlist lines without terminators.
func (d *Document) Lines() []string {
	out := make([]string, len(d.lines))
	copy(out, d.lines)
	return out
}

// Directive returns the first analysis directive, or nil.
func (d *Document) Directive() *Directive {
	if d.directive == nil {
		return nil
	}
	dir := *d.directive
	return &dir
}

// Parameters maps each parameter name to its last occurrence in the file.
func (d *Document) Parameters() map[string]Statement {
	out := make(map[string]Statement, len(d.byName))
	for name, occ := range d.byName {
		out[name] = occ[len(occ)-1]
	}
	return out
}

// Names returns the parameter names in sorted order.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parameter looks up a parameter by exact name, then case-insensitively.
func (d *Document) Parameter(name string) (Statement, bool) {
	key, ok := d.resolve(name)
	if !ok {
		return Statement{}, false
	}
	occ := d.byName[key]
	return occ[len(occ)-1], true
}

// Occurrences returns every assignment of name in file order.
func (d *Document) Occurrences(name string) []Statement {
	key, ok := d.resolve(name)
	if !ok {
		return nil
	}
	return append([]Statement(nil), d.byName[key]...)
}

// Duplicates returns the sorted names assigned on more than one site.
func (d *Document) Duplicates() []string {
	var dups []string
	for name, occ := range d.byName {
		if len(occ) > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

func (d *Document) resolve(name string) (string, bool) {
	if _, ok := d.byName[name]; ok {
		return name, true
	}

	found := ""
	for key := range d.byName {
		if strings.EqualFold(key, name) {
			if found != "" {
				return "", false // ambiguous
			}
			found = key
		}
	}
	return found, found != ""
}

// ChangeParameter rewrites every occurrence of name to name=value. Only the
// bytes of each assignment change; the rest of the line is preserved.
func (d *Document) ChangeParameter(name, value string) error {
	key, ok := d.resolve(name)
	if !ok {
		return &UnknownParameterError{Name: name}
	}
	if value == "" || strings.IndexFunc(value, unicode.IsSpace) >= 0 {
		return &InvalidValueError{Name: name, Value: value}
	}

	// Right to left, so earlier ranges on a shared line stay valid.
	occ := append([]Statement(nil), d.byName[key]...)
	sort.Slice(occ, func(i, j int) bool {
		if occ[i].Line != occ[j].Line {
			return occ[i].Line > occ[j].Line
		}
		return occ[i].Start > occ[j].Start
	})

	touched := make(map[int]bool)
	for _, s := range occ {
		line := d.lines[s.Line]
		d.lines[s.Line] = line[:s.Start] + key + "=" + value + line[s.End:]
		touched[s.Line] = true
	}

	for i := range touched {
		d.rescanLine(i)
	}
	d.reindex()

	d.log.Debug().
		Str("netlist", d.name).
		Str("parameter", key).
		Str("value", value).
		Int("occurrences", len(occ)).
		Msg("parameter changed")

	return nil
}

func (d *Document) rescanLine(i int) {
	d.stmts[i] = ScanLine(d.lines[i], i)
	if d.directive != nil && d.directive.Line == i {
		if dir, ok := MatchDirective(d.lines[i], i); ok {
			d.directive = dir
		}
	}
}

// ChangeParameters applies changes in order to a copy of the document and
// returns the copy, renamed to newPath. An empty newPath derives
// "<name>_new.net" next to the source. On error the receiver is unchanged
// and no copy is returned.
func (d *Document) ChangeParameters(changes []Assignment, newPath string) (*Document, error) {
	derived := d.Clone()
	for _, c := range changes {
		if err := derived.ChangeParameter(c.Name, c.Value); err != nil {
			return nil, err
		}
	}

	if newPath == "" {
		newPath = DerivedPath(d.path)
	}
	if newPath != "" {
		derived.setPath(newPath)
	} else {
		derived.name = derivedName(d.name)
	}

	return derived, nil
}

// DerivedPath returns the default path of a changed copy: foo.net -> foo_new.net.
func DerivedPath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(path), derivedName(filepath.Base(path)))
}

func derivedName(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".net"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_new" + ext
}

// Clone returns a deep copy sharing no state with d.
func (d *Document) Clone() *Document {
	c := &Document{
		name:     d.name,
		path:     d.path,
		lines:    d.Lines(),
		stmts:    make([][]Statement, len(d.stmts)),
		eol:      d.eol,
		encoding: d.encoding,
		log:      d.log,
	}
	for i, stmts := range d.stmts {
		if stmts != nil {
			c.stmts[i] = append([]Statement(nil), stmts...)
		}
	}
	c.directive = d.Directive()
	c.reindex()
	return c
}

// Rename sets the path WriteFile persists to.
func (d *Document) Rename(path string) {
	d.setPath(path)
}

// SetDirectiveParams replaces the parameter string of the analysis directive.
func (d *Document) SetDirectiveParams(params string) error {
	if d.directive == nil {
		return ErrNoDirective
	}
	return d.rewriteDirective(d.directive.Keyword, params)
}

// ReplaceDirective switches the analysis directive to kind with params.
func (d *Document) ReplaceDirective(kind DirectiveKind, params string) error {
	if d.directive == nil {
		return ErrNoDirective
	}
	if _, ok := directiveKeywords[kind]; !ok {
		return fmt.Errorf("unsupported analysis type: %v", kind)
	}
	if kind == d.directive.Kind {
		return d.rewriteDirective(d.directive.Keyword, params)
	}
	return d.rewriteDirective(kind.String(), params)
}

func (d *Document) rewriteDirective(keyword, params string) error {
	i := d.directive.Line
	line := d.lines[i]
	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

	text := keyword
	if fields := strings.Fields(params); len(fields) > 0 {
		text += " " + strings.Join(fields, " ")
	}

	dir, ok := MatchDirective(indent+text, i)
	if !ok {
		return fmt.Errorf("directive %q not recognized", text)
	}

	d.lines[i] = indent + text
	d.directive = dir
	d.stmts[i] = ScanLine(d.lines[i], i)
	d.reindex()
	return nil
}

// Serialize returns the netlist text, each line followed by the line
// terminator the source used.
func (d *Document) Serialize() string {
	var sb strings.Builder
	for _, line := range d.lines {
		sb.WriteString(line)
		sb.WriteString(d.eol)
	}
	return sb.String()
}

// WriteTo writes the serialized netlist in the source encoding.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	b, err := textenc.Encode(d.Serialize(), d.encoding)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// WriteFile persists the document at its path.
func (d *Document) WriteFile() error {
	if d.path == "" {
		return fmt.Errorf("netlist %s has no path", d.name)
	}

	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("writing netlist: %w", err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing netlist: %w", err)
	}
	return f.Close()
}
