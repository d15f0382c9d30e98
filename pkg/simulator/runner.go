// Package simulator runs an external SPICE simulator on a netlist file
// and collects the log and raw files it leaves next to it.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/edp1096/spicesweep/internal/metrics"
	"github.com/edp1096/spicesweep/pkg/raw"
)

const (
	DefaultExecutable = "LTspice"
	DefaultTimeout    = 5 * time.Minute

	// NetlistPlaceholder is replaced by the netlist path in arguments.
	NetlistPlaceholder = "{netlist}"
)

var DefaultArgs = []string{"-b", "-ascii", NetlistPlaceholder}

// Runner simulates a netlist that is already on disk.
type Runner interface {
	Run(ctx context.Context, netlistPath string) (*Outcome, error)
}

// Outcome describes a finished simulation.
type Outcome struct {
	NetlistPath string
	LogPath     string
	RawPath     string
	LogLines    []string
	Duration    time.Duration
}

// Results parses the raw file of the run.
func (o *Outcome) Results() (*raw.ResultSet, error) {
	return raw.ParseFile(o.RawPath)
}

// LTspice runs LTspice in batch mode, natively or through wine.
type LTspice struct {
	executable string
	args       []string
	wine       string
	winePrefix string
	timeout    time.Duration
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

type Option func(*LTspice)

func WithExecutable(path string) Option {
	return func(r *LTspice) {
		r.executable = path
	}
}

// WithArgs sets the argument template. NetlistPlaceholder marks where the
// netlist path goes; without it the path is appended.
func WithArgs(args ...string) Option {
	return func(r *LTspice) {
		r.args = append([]string(nil), args...)
	}
}

// WithWine runs the executable through the wine binary. When prefix is set
// it is exported as WINEPREFIX and netlist paths under its drive_c are
// passed in C:\ form.
func WithWine(wine, prefix string) Option {
	return func(r *LTspice) {
		r.wine = wine
		r.winePrefix = prefix
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *LTspice) {
		r.timeout = d
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *LTspice) {
		r.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *LTspice) {
		r.metrics = m
	}
}

func NewLTspice(opts ...Option) *LTspice {
	r := &LTspice{
		executable: DefaultExecutable,
		args:       append([]string(nil), DefaultArgs...),
		timeout:    DefaultTimeout,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Command returns the program and arguments used for netlistPath.
func (r *LTspice) Command(netlistPath string) (string, []string, error) {
	target := netlistPath
	if r.wine != "" && r.winePrefix != "" {
		p, err := ToWinePath(netlistPath, r.winePrefix)
		if err != nil {
			return "", nil, err
		}
		target = p
	}

	args := make([]string, 0, len(r.args)+2)
	placed := false
	for _, a := range r.args {
		if strings.Contains(a, NetlistPlaceholder) {
			a = strings.ReplaceAll(a, NetlistPlaceholder, target)
			placed = true
		}
		args = append(args, a)
	}
	if !placed {
		args = append(args, target)
	}

	if r.wine != "" {
		return r.wine, append([]string{r.executable}, args...), nil
	}
	return r.executable, args, nil
}

// Run simulates netlistPath and checks the log it produces. A log line
// containing "Error" or a missing raw file fails the run. The .log and
// .raw left by an earlier run are removed before the simulator starts.
func (r *LTspice) Run(ctx context.Context, netlistPath string) (out *Outcome, err error) {
	start := time.Now()
	defer func() {
		r.metrics.RecordSimulation(time.Since(start), err)
	}()

	abs, err := filepath.Abs(netlistPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("netlist: %w", err)
	}

	name, args, err := r.Command(abs)
	if err != nil {
		return nil, err
	}

	log := r.log.With().Str("netlist", filepath.Base(abs)).Logger()
	log.Debug().Str("command", name).Strs("args", args).Msg("starting simulator")

	logPath, rawPath := siblingPath(abs, ".log"), siblingPath(abs, ".raw")
	for _, stale := range []string{logPath, rawPath} {
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, &SimulationError{Netlist: abs, Err: fmt.Errorf("removing previous output: %w", err)}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = filepath.Dir(abs)
	if r.winePrefix != "" {
		cmd.Env = append(os.Environ(), "WINEPREFIX="+r.winePrefix)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, &SimulationError{Netlist: abs, Err: fmt.Errorf("%w after %s", ErrTimeout, r.timeout)}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out = &Outcome{
		NetlistPath: abs,
		LogPath:     logPath,
		RawPath:     rawPath,
		Duration:    time.Since(start),
	}

	lines, logErr := ReadLog(out.LogPath)
	if logErr != nil {
		// LTspice exits 0 on most failures, so a missing log only matters
		// when the process itself failed.
		if runErr != nil {
			return nil, &SimulationError{Netlist: abs, Err: fmt.Errorf("%v: %s", runErr, strings.TrimSpace(stderr.String()))}
		}
		log.Warn().Err(logErr).Msg("simulator left no log")
	}
	out.LogLines = lines

	if err := CheckLog(lines); err != nil {
		var simErr *SimulationError
		if errors.As(err, &simErr) {
			simErr.Netlist = abs
		}
		return nil, err
	}
	if runErr != nil {
		return nil, &SimulationError{Netlist: abs, Lines: lines, Err: runErr}
	}

	if _, statErr := os.Stat(out.RawPath); statErr != nil {
		return nil, &SimulationError{Netlist: abs, Err: ErrNoRawFile}
	}

	log.Info().Dur("duration", out.Duration).Msg("simulation finished")
	return out, nil
}
