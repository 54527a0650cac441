package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Disentinel/grafema-sub012/internal/config"
	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/discover"
	"github.com/Disentinel/grafema-sub012/internal/graph"
	"github.com/Disentinel/grafema-sub012/internal/observability"
	"github.com/Disentinel/grafema-sub012/internal/pipeline"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/builtin"
	"github.com/Disentinel/grafema-sub012/internal/store"
	"github.com/Disentinel/grafema-sub012/internal/watcher"
)

type analyzeFlags struct {
	config      string
	db          string
	strict      bool
	workers     int
	plugins     []string
	watch       bool
	metricsAddr string
}

func newAnalyzeCmd() *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Run the plugin pipeline over a project and store the graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "config file (default: .grafema/config.yaml or grafema.toml in the project)")
	fl.StringVar(&f.db, "db", "", "graph database path")
	fl.BoolVar(&f.strict, "strict", false, "fail when a phase reports unsuppressed fatal diagnostics")
	fl.IntVar(&f.workers, "workers", 0, "units analyzed concurrently (default: NumCPU)")
	fl.StringSliceVar(&f.plugins, "plugins", nil, "run only these plugins")
	fl.BoolVar(&f.watch, "watch", false, "re-analyze when source files change")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

// loadConfig reads an explicit config file or falls back to project lookup.
func loadConfig(root, path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(root)
}

func projectRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func runAnalyze(cmd *cobra.Command, f *analyzeFlags, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root, f.config)
	if err != nil {
		return err
	}
	fl := cmd.Flags()
	if fl.Changed("strict") {
		cfg.Strict = f.strict
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("db") {
		cfg.Database = f.db
	}
	if fl.Changed("plugins") {
		cfg.Plugins = f.plugins
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ignore, err := cfg.IgnoreRules()
	if err != nil {
		return err
	}
	discoverOpts := &discover.Options{Exclude: cfg.Exclude}
	reg, err := builtin.Registry(builtin.Options{Discover: discoverOpts}, cfg.Plugins)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DatabasePath(root))
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.metricsAddr != "" {
		srv, err := startMetricsServer(f.metricsAddr)
		if err != nil {
			return err
		}
		defer srv.Close()
		slog.Info("metrics.listening", "addr", srv.Addr)
	}

	a := &analyzer{
		root:     root,
		project:  pipeline.ProjectNameFromPath(root),
		store:    st,
		registry: reg,
		opts: pipeline.Options{
			Strict:  cfg.Strict,
			Workers: cfg.Workers,
			Ignore:  ignore,
			Logger:  slog.Default(),
		},
	}
	out := cmd.OutOrStdout()
	rep, runErr := a.run(ctx)
	printReport(out, rep, runErr)
	if !f.watch {
		return exitFor(runErr)
	}

	w, err := watcher.New(root, watcher.Options{Debounce: cfg.Watch.Debounce, Discover: discoverOpts},
		func(ctx context.Context, changed []string) error {
			fmt.Fprintf(out, "\n%d file(s) changed, re-analyzing\n", len(changed))
			rep, err := a.run(ctx)
			printReport(out, rep, err)
			var strict *diag.StrictModeError
			if errors.As(err, &strict) {
				return nil
			}
			return err
		})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "watching %s (ctrl-c to stop)\n", root)
	return w.Run(ctx)
}

// exitFor maps a pipeline error to the CLI result. Errors already shown in
// the report become a bare exit code.
func exitFor(err error) error {
	if err == nil {
		return nil
	}
	var strict *diag.StrictModeError
	var internal *pipeline.InternalError
	if errors.As(err, &strict) || errors.As(err, &internal) {
		return &exitError{code: 1, err: err}
	}
	return err
}

// analyzer runs the pipeline against one project in the store.
type analyzer struct {
	root     string
	project  string
	store    *store.Store
	registry *plugin.Registry
	opts     pipeline.Options
}

// run replaces the project's graph with a fresh analysis.
func (a *analyzer) run(ctx context.Context) (*pipeline.Report, error) {
	if err := a.store.ClearProject(a.project); err != nil {
		return nil, fmt.Errorf("clear project: %w", err)
	}
	g, err := a.store.Graph(a.project, store.DefaultIDCacheSize)
	if err != nil {
		return nil, err
	}
	rep, runErr := pipeline.New(a.registry, g, a.opts).Run(ctx, a.root)
	if rep == nil {
		return nil, runErr
	}
	if err := a.store.UpsertProject(a.project, a.root, rep.RunID); err != nil {
		return rep, errors.Join(runErr, err)
	}
	if err := a.recordHashes(ctx, g); err != nil {
		return rep, errors.Join(runErr, err)
	}
	if stats, err := a.store.GetStats(a.project); err == nil {
		observability.GraphNodes.Set(float64(stats.Nodes))
		observability.GraphEdges.Set(float64(stats.Edges))
	}
	return rep, runErr
}

// recordHashes stores the content hash of every indexed module.
func (a *analyzer) recordHashes(ctx context.Context, g graph.Graph) error {
	mods, err := g.FindNodes(ctx, graph.NodeFilter{Type: graph.NodeModule})
	if err != nil {
		return err
	}
	hashes := make(map[string]string, len(mods))
	for _, m := range mods {
		if h, ok := m.Properties["contentHash"].(string); ok {
			hashes[m.File] = h
		}
	}
	return a.store.UpsertFileHashBatch(a.project, hashes)
}

// printReport writes the run summary. It tolerates a nil report.
func printReport(w io.Writer, rep *pipeline.Report, err error) {
	if rep != nil {
		writeReport(w, rep)
	}
	switch {
	case err != nil:
		writeFailure(w, err)
	case rep != nil:
		writeOK(w, "%d fatal, %d warning(s)", len(rep.Blocking()), diag.CountBySeverity(rep.Diagnostics)[diag.SevWarning])
	}
}
