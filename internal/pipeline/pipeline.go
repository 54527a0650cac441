package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/observability"
	"github.com/Disentinel/grafema-sub012/internal/phase"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Options configures one Pipeline.
type Options struct {
	// Strict turns unsuppressed fatal diagnostics into a *diag.StrictModeError
	// at the end of the phase that produced them.
	Strict bool
	// Workers bounds unit-level parallelism. Values below 1 mean NumCPU.
	Workers int
	Ignore  *diag.IgnoreRules
	Logger  *slog.Logger
}

// Pipeline sequences the five phases over one project.
type Pipeline struct {
	registry *plugin.Registry
	graph    graph.Graph
	runner   *phase.Runner
	opts     Options
	logger   *slog.Logger
}

// New creates a Pipeline writing into g.
func New(reg *plugin.Registry, g graph.Graph, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: reg,
		graph:    g,
		runner:   phase.NewRunner(logger),
		opts:     opts,
		logger:   logger,
	}
}

// ProjectNameFromPath derives a unique project name from an absolute path
// by replacing path separators with dashes and trimming the leading dash.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.ReplaceAll(cleaned, "/", "-")
	name = strings.TrimLeft(name, "-")
	if name == "" {
		return "root"
	}
	return name
}

// InternalError aborts a run after a phase in which at least one unit hit an
// invariant violation. Sibling units of the same batch finished first.
type InternalError struct {
	Phase    plugin.Phase
	Failures []*phase.PanicError
}

func (e *InternalError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("internal error in %s phase", e.Phase)
	}
	return fmt.Sprintf("internal error in %s phase (%d failure(s)): %v", e.Phase, len(e.Failures), e.Failures[0])
}

func (e *InternalError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

// phaseAcc is the phase-wide accumulator. Unit results are merged into it only
// after their batch completes.
type phaseAcc struct {
	results  []*phase.Result
	produced tagset.Set[graph.EdgeType]
}

func newPhaseAcc() *phaseAcc {
	return &phaseAcc{produced: make(tagset.Set[graph.EdgeType])}
}

func (a *phaseAcc) merge(r *phase.Result) {
	if r == nil {
		return
	}
	a.results = append(a.results, r)
	a.produced.Merge(r.Produced)
}

// Run executes Discovery, Indexing, Analysis, Enrichment and Validation over
// projectRoot. The returned report is non-nil whenever any phase ran, also
// when err is a *diag.StrictModeError or *InternalError.
func (p *Pipeline) Run(ctx context.Context, projectRoot string) (rep *Report, err error) {
	if err := p.registry.Validate(); err != nil {
		return nil, fmt.Errorf("plugin registry: %w", err)
	}

	rep = &Report{
		RunID:       uuid.New().String(),
		ProjectRoot: projectRoot,
		Produced:    make(tagset.Set[graph.EdgeType]),
	}
	ctx, span := observability.StartSpan(ctx, "pipeline.Run",
		attribute.String("run_id", rep.RunID),
		attribute.String("project_root", projectRoot),
		attribute.Bool("strict", p.opts.Strict),
		attribute.Int("workers", p.opts.Workers),
	)
	start := time.Now()
	defer func() {
		rep.Elapsed = time.Since(start)
		observability.EndSpan(span, err)
	}()

	p.logger.Info("pipeline.start", "run", rep.RunID, "root", projectRoot, "strict", p.opts.Strict, "workers", p.opts.Workers)

	for _, ph := range plugin.Phases {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		acc, perr := p.runPhase(ctx, ph, rep)
		if acc != nil {
			p.fold(ph, acc, rep)
		}
		if perr != nil {
			return rep, perr
		}
		if ph == plugin.Discovery && len(rep.Units) == 0 {
			rep.Units = []*plugin.Unit{rootUnit(projectRoot)}
			p.logger.Info("pipeline.default_unit", "root", projectRoot)
		}
		if err := p.barrier(ph, rep); err != nil {
			return rep, err
		}
	}

	counts := diag.CountBySeverity(rep.Diagnostics)
	p.logger.Info("pipeline.done",
		"run", rep.RunID,
		"units", len(rep.Units),
		"fatal", counts[diag.SevFatal],
		"warnings", counts[diag.SevWarning],
		"suppressed", rep.SuppressedCount,
		"elapsed", time.Since(start),
	)
	return rep, nil
}

func (p *Pipeline) runPhase(ctx context.Context, ph plugin.Phase, rep *Report) (*phaseAcc, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline."+ph.String(), attribute.String("phase", ph.String()))
	t := time.Now()
	plugins := p.registry.Plugins(ph)

	var (
		acc *phaseAcc
		err error
	)
	if ph.PerUnit() {
		acc, err = p.runUnits(ctx, ph, plugins, rep)
	} else {
		acc, err = p.runOnce(ctx, ph, plugins, rep)
	}

	elapsed := time.Since(t)
	observability.PhaseDuration.WithLabelValues(ph.String()).Observe(elapsed.Seconds())
	observability.EndSpan(span, err)
	p.logger.Info("pass.timing", "pass", ph.String(), "plugins", len(plugins), "elapsed", elapsed)
	if acc != nil {
		rep.Phases = append(rep.Phases, summarize(ph, acc, elapsed))
	}
	return acc, err
}

// runOnce executes a project-wide phase.
func (p *Pipeline) runOnce(ctx context.Context, ph plugin.Phase, plugins []plugin.Plugin, rep *Report) (*phaseAcc, error) {
	acc := newPhaseAcc()
	res, err := p.runner.Run(ctx, phase.Input{
		Phase:    ph,
		Plugins:  plugins,
		Manifest: plugin.Manifest{ProjectRoot: rep.ProjectRoot, Units: rep.Units},
		Graph:    p.graph,
		Ignore:   p.opts.Ignore,
		Produced: rep.Produced,
	})
	acc.merge(res)
	if err != nil {
		return acc, fmt.Errorf("%s phase: %w", ph, err)
	}
	return acc, nil
}

// runUnits executes a per-unit phase in sequential batches of at most Workers
// units. Units inside a batch run concurrently; each owns its result until the
// batch is done.
func (p *Pipeline) runUnits(ctx context.Context, ph plugin.Phase, plugins []plugin.Plugin, rep *Report) (*phaseAcc, error) {
	acc := newPhaseAcc()
	units := rep.Units
	workers := p.opts.Workers
	// Snapshot read by every unit of the phase; runners only clone it.
	seed := rep.Produced.Clone()

	for start := 0; start < len(units); start += workers {
		batch := units[start:min(start+workers, len(units))]
		results := make([]*phase.Result, len(batch))
		errs := make([]error, len(batch))

		g := new(errgroup.Group)
		g.SetLimit(workers)
		for i, u := range batch {
			g.Go(func() error {
				observability.UnitsInFlight.Inc()
				defer observability.UnitsInFlight.Dec()
				results[i], errs[i] = p.runner.Run(ctx, phase.Input{
					Phase:    ph,
					Plugins:  plugins,
					Manifest: plugin.Manifest{Unit: u, ProjectRoot: rep.ProjectRoot, Units: units},
					Graph:    p.graph,
					Ignore:   p.opts.Ignore,
					Produced: seed,
				})
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			acc.merge(r)
		}
		if err := errors.Join(errs...); err != nil {
			return acc, fmt.Errorf("%s phase: %w", ph, err)
		}
		p.logger.Debug("pipeline.batch", "phase", ph.String(), "from", start, "size", len(batch))
	}
	return acc, nil
}

// fold merges a finished phase into the report.
func (p *Pipeline) fold(ph plugin.Phase, acc *phaseAcc, rep *Report) {
	for _, r := range acc.results {
		rep.Diagnostics = append(rep.Diagnostics, r.Diagnostics...)
		rep.SuppressedCount += r.SuppressedCount
		if ph == plugin.Discovery {
			rep.Units = append(rep.Units, r.Units...)
		}
	}
	rep.Produced.Merge(acc.produced)
}

// barrier decides whether the run continues after ph.
func (p *Pipeline) barrier(ph plugin.Phase, rep *Report) error {
	sum := rep.Phase(ph)
	if sum == nil {
		return nil
	}
	if len(sum.Internal) > 0 {
		return &InternalError{Phase: ph, Failures: sum.Internal}
	}
	if len(sum.Blocking) == 0 {
		return nil
	}
	if p.opts.Strict {
		p.logger.Error("pipeline.strict_failure", "phase", ph.String(), "fatal", len(sum.Blocking), "suppressed", rep.SuppressedCount)
		return &diag.StrictModeError{
			Phase:           ph.String(),
			Diagnostics:     sum.Blocking,
			SuppressedCount: rep.SuppressedCount,
		}
	}
	for _, d := range sum.Blocking {
		p.logger.Warn("pipeline.diagnostic", "phase", ph.String(), "plugin", d.Plugin, "code", d.Code, "file", d.File, "msg", d.Message)
	}
	return nil
}

func rootUnit(projectRoot string) *plugin.Unit {
	name := filepath.Base(projectRoot)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "root"
	}
	return &plugin.Unit{
		ID:                      name,
		Name:                    name,
		Root:                    ".",
		DeclaredDependencyNames: tagset.Of[string](),
	}
}
