// Package phase runs the plugins of one pipeline phase for one execution
// scope (a single analysis unit, or the whole project).
package phase

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/observability"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

// Diagnostic codes raised by the runner itself.
const (
	CodePluginFailed = "ERR_PLUGIN_FAILED"
	CodeInternal     = "ERR_INTERNAL"
)

// PanicError wraps a value recovered from a panicking plugin. Unwrap exposes
// it when it is an error, so callers can match *scope.InvariantError.
type PanicError struct {
	Plugin string
	Unit   string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("plugin %s panicked on unit %s: %v", e.Plugin, e.Unit, e.Value)
	}
	return fmt.Sprintf("plugin %s panicked: %v", e.Plugin, e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Input is one phase execution request.
type Input struct {
	Phase    plugin.Phase
	Plugins  []plugin.Plugin
	Manifest plugin.Manifest
	Graph    graph.Graph
	Ignore   *diag.IgnoreRules
	// Produced holds the edge types produced earlier in the run. The runner
	// reads it and never writes it.
	Produced tagset.Set[graph.EdgeType]
}

// Result is the outcome of one Run. It is owned by the caller; nothing in it
// is shared with other Runs.
type Result struct {
	Phase    plugin.Phase
	Unit     string
	Executed []string
	Skipped  []Skip
	// Aborted lists plugins that never ran because an earlier plugin of the
	// same execution panicked.
	Aborted     []string
	Diagnostics []diag.Diagnostic
	// Produced holds only the edge types produced during this Run.
	Produced        tagset.Set[graph.EdgeType]
	SuppressedCount int
	NodesCreated    int
	EdgesCreated    int
	Units           []*plugin.Unit
	// Internal is the first *PanicError of this Run, if any.
	Internal *PanicError
}

// Runner executes one phase at a time. It holds no per-run state and may be
// shared by concurrent unit executions.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a runner. A nil logger means slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Run orders the phase's plugins, applies the skip filters and executes the
// rest sequentially. A dependency cycle is returned before anything runs.
// Fatal diagnostics never stop the loop; a plugin panic stops it for this
// execution only. Cancellation of ctx is checked between plugins and returns
// the partial result together with ctx.Err().
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	ordered, err := plugin.Order(in.Phase, in.Plugins)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Phase:    in.Phase,
		Produced: make(tagset.Set[graph.EdgeType]),
	}
	if in.Manifest.Unit != nil {
		res.Unit = in.Manifest.Unit.Name
	}
	logger := r.logger.With("phase", in.Phase.String())
	if res.Unit != "" {
		logger = logger.With("unit", res.Unit)
	}

	// available is everything Enrichment filters can see: earlier phases plus
	// this Run so far.
	available := in.Produced.Clone()
	resources := plugin.NewResources()

	for i, p := range ordered {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d := p.Descriptor()

		if notApplicable(d, in.Manifest.Unit) {
			var present []string
			if in.Manifest.Unit != nil {
				present = strs(in.Manifest.Unit.DeclaredDependencyNames)
			}
			r.skip(logger, res, d, observability.SkipNotApplicable, strs(d.Covers), present)
			continue
		}
		if nothingNew(d, available) {
			r.skip(logger, res, d, observability.SkipNothingNew, strs(d.Consumes), strs(available))
			continue
		}

		rec := graph.NewRecorder(in.Graph)
		ec := &plugin.ExecContext{
			Manifest:  in.Manifest,
			Phase:     in.Phase,
			Graph:     rec,
			Resources: resources,
			Ignore:    in.Ignore,
			Logger:    logger.With("plugin", d.Name),
		}
		out, perr, execErr := r.execute(ctx, p, d, ec, res.Unit)
		res.Executed = append(res.Executed, d.Name)

		if out != nil {
			for _, dg := range out.Diagnostics {
				if dg.Plugin == "" {
					dg.Plugin = d.Name
				}
				res.Diagnostics = append(res.Diagnostics, dg)
			}
			res.SuppressedCount += out.Metadata.SuppressedByIgnore
			res.Units = append(res.Units, out.Units...)
		}
		res.NodesCreated += rec.NodesWritten()
		res.EdgesCreated += rec.EdgesWritten()

		wrote := rec.EdgeTypes()
		res.Produced.Add(wrote...)
		if len(wrote) > 0 || (out != nil && out.EdgesCreated > 0) {
			res.Produced.Merge(d.Produces)
		}
		available.Merge(res.Produced)

		switch {
		case perr != nil:
			res.Diagnostics = append(res.Diagnostics, diag.Diagnostic{
				Code:     CodeInternal,
				Severity: diag.SevFatal,
				Message:  perr.Error(),
				Plugin:   d.Name,
			})
			res.Internal = perr
			for _, rest := range ordered[i+1:] {
				res.Aborted = append(res.Aborted, rest.Descriptor().Name)
			}
			logger.Error("phase.plugin_panic", "plugin", d.Name, "err", perr.Value, "aborted", res.Aborted)
			return res, nil
		case execErr != nil:
			res.Diagnostics = append(res.Diagnostics, diag.Diagnostic{
				Code:     CodePluginFailed,
				Severity: diag.SevFatal,
				Message:  execErr.Error(),
				Plugin:   d.Name,
			})
			logger.Warn("phase.plugin_failed", "plugin", d.Name, "err", execErr)
		}
	}
	return res, nil
}

// execute runs one plugin, converting a panic into *PanicError.
func (r *Runner) execute(ctx context.Context, p plugin.Plugin, d plugin.Descriptor, ec *plugin.ExecContext, unit string) (out *plugin.Result, perr *PanicError, err error) {
	ctx, span := observability.StartSpan(ctx, "plugin."+d.Name,
		attribute.String("phase", d.Phase.String()),
		attribute.String("plugin", d.Name),
		attribute.String("unit", unit),
	)
	start := time.Now()
	outcome := observability.OutcomeOK

	defer func() {
		if v := recover(); v != nil {
			perr = &PanicError{Plugin: d.Name, Unit: unit, Value: v, Stack: debug.Stack()}
			outcome = observability.OutcomePanicked
			out, err = nil, nil
		}
		elapsed := time.Since(start)
		observability.PluginRuns.WithLabelValues(d.Phase.String(), d.Name, outcome).Inc()
		observability.PluginDuration.WithLabelValues(d.Phase.String(), d.Name).Observe(elapsed.Seconds())
		if perr != nil {
			observability.EndSpan(span, perr)
		} else {
			observability.EndSpan(span, err)
		}
		r.logger.Debug("plugin.timing", "phase", d.Phase.String(), "plugin", d.Name, "unit", unit, "elapsed", elapsed)
	}()

	out, err = p.Execute(ctx, ec)
	if err != nil {
		outcome = observability.OutcomeFailed
		err = fmt.Errorf("plugin %s: %w", d.Name, err)
	}
	if out != nil {
		for _, dg := range out.Diagnostics {
			observability.Diagnostics.WithLabelValues(dg.Severity.String(), fmt.Sprint(dg.Suppressed)).Inc()
		}
	}
	return out, nil, err
}

func (r *Runner) skip(logger *slog.Logger, res *Result, d plugin.Descriptor, reason string, declared, present []string) {
	res.Skipped = append(res.Skipped, Skip{Plugin: d.Name, Unit: res.Unit, Reason: reason, Declared: declared, Present: present})
	observability.PluginSkips.WithLabelValues(d.Phase.String(), d.Name, reason).Inc()
	switch reason {
	case observability.SkipNotApplicable:
		logger.Info("phase.skip", "plugin", d.Name, "reason", reason, "covers", declared, "dependencies", present)
	default:
		logger.Info("phase.skip", "plugin", d.Name, "reason", reason, "consumes", declared, "produced", present)
	}
}
