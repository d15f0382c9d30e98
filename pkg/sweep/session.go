package sweep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edp1096/spicesweep/internal/metrics"
	"github.com/edp1096/spicesweep/pkg/netlist"
	"github.com/edp1096/spicesweep/pkg/raw"
	"github.com/edp1096/spicesweep/pkg/simulator"
)

// PointResult is the outcome of one sweep point. Err is set when that point
// failed; the other points are unaffected.
type PointResult struct {
	Index       int
	Point       Point
	NetlistPath string
	Outcome     *simulator.Outcome
	Results     *raw.ResultSet
	Probes      map[string]*raw.NodeSeries // by Probe.Label
	Duration    time.Duration
	Err         error
}

// Session runs the points of one plan against one source netlist.
type Session struct {
	ID      string
	plan    *Plan
	source  *netlist.Document
	runner  simulator.Runner
	workers int
	logDir  string
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Session)

func WithWorkers(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithLogDir keeps a copy of every simulator log in dir.
func WithLogDir(dir string) Option {
	return func(s *Session) {
		s.logDir = dir
	}
}

// NewSession loads the plan's netlist and applies its directive override.
func NewSession(plan *Plan, runner simulator.Runner, opts ...Option) (*Session, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:      uuid.NewString(),
		plan:    plan,
		runner:  runner,
		workers: runtime.NumCPU(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("run_id", s.ID).Logger()

	doc, err := netlist.LoadFile(plan.Netlist, netlist.WithLogger(s.log))
	if err != nil {
		return nil, err
	}
	if plan.Directive != "" {
		kind, params, _ := plan.directive()
		if err := doc.ReplaceDirective(kind, params); err != nil {
			return nil, fmt.Errorf("directive override: %w", err)
		}
	}
	s.source = doc
	return s, nil
}

func (s *Session) Source() *netlist.Document { return s.source }

// Run simulates every point, at most workers at a time, and returns the
// results in plan order. The error is only set when ctx ends the sweep.
func (s *Session) Run(ctx context.Context) ([]PointResult, error) {
	defer s.metrics.SweepStarted()()

	points := s.plan.Expand()
	outDir := s.plan.Output
	if outDir == "" {
		outDir = filepath.Dir(s.source.Path())
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if s.logDir != "" {
		if err := os.MkdirAll(s.logDir, 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}
	}

	s.log.Info().
		Str("netlist", s.source.Name()).
		Int("points", len(points)).
		Int("workers", s.workers).
		Msg("sweep started")

	results := make([]PointResult, len(points))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, pt := range points {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = PointResult{Index: i, Point: pt, Err: err}
				return err
			}
			results[i] = s.runPoint(gctx, i, pt, outDir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	s.log.Info().Int("points", len(points)).Int("failed", failed).Msg("sweep finished")
	return results, nil
}

func (s *Session) runPoint(ctx context.Context, i int, pt Point, outDir string) (res PointResult) {
	start := time.Now()
	res = PointResult{Index: i, Point: pt}
	log := s.log.With().Int("point", i).Str("assignments", pt.String()).Logger()

	defer func() {
		res.Duration = time.Since(start)
		s.metrics.RecordSweepPoint(res.Err)
		if res.Err != nil {
			log.Error().Err(res.Err).Msg("point failed")
		}
	}()

	path := filepath.Join(outDir, pointName(s.source.Name(), i))
	doc, err := s.source.ChangeParameters([]netlist.Assignment(pt), path)
	if err != nil {
		res.Err = err
		return res
	}
	s.metrics.RecordParameterChanges(len(pt))

	if err := doc.WriteFile(); err != nil {
		res.Err = err
		return res
	}
	res.NetlistPath = path

	out, err := s.runner.Run(ctx, path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Outcome = out

	if s.logDir != "" && len(out.LogLines) > 0 {
		if _, err := simulator.CopyLog(out.LogPath, out.LogLines, s.logDir); err != nil {
			log.Warn().Err(err).Msg("keeping log")
		}
	}

	rs, err := out.Results()
	s.metrics.RecordRawParse(err)
	if err != nil {
		res.Err = err
		return res
	}
	res.Results = rs

	probes, err := collect(rs, s.plan.Probes)
	if err != nil {
		res.Err = err
		return res
	}
	res.Probes = probes

	log.Debug().Dur("duration", time.Since(start)).Msg("point finished")
	return res
}

func collect(rs *raw.ResultSet, probes []Probe) (map[string]*raw.NodeSeries, error) {
	out := make(map[string]*raw.NodeSeries, len(probes))
	for _, p := range probes {
		kind, err := p.LookupKind()
		if err != nil {
			return nil, err
		}
		series, err := rs.Value(p.Name, kind)
		if err != nil {
			return nil, err
		}
		out[p.Label()] = series
	}
	return out, nil
}

// pointName is "<base>_<nnn><ext>" for the i-th point.
func pointName(name string, i int) string {
	ext := filepath.Ext(name)
	if ext == "" {
		ext = ".net"
	}
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(name, filepath.Ext(name)), i, ext)
}
