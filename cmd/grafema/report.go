package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"

	"github.com/Disentinel/grafema-sub012/internal/diag"
	"github.com/Disentinel/grafema-sub012/internal/pipeline"
)

var (
	headerColor  = color.New(color.Bold)
	fatalColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.Faint)
	okColor      = color.New(color.FgGreen, color.Bold)
)

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevFatal:
		return fatalColor
	case diag.SevWarning:
		return warningColor
	}
	return infoColor
}

func writeReport(w io.Writer, rep *pipeline.Report) {
	headerColor.Fprintf(w, "Analyzed %s", rep.ProjectRoot)
	fmt.Fprintf(w, " (run %s, %s)\n", rep.RunID, rep.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  units: %d  nodes: %d  edges: %d\n", len(rep.Units), rep.NodesCreated(), rep.EdgesCreated())

	fmt.Fprintf(w, "  %-12s %8s %8s %8s %8s %8s\n", "phase", "runs", "skipped", "nodes", "edges", "diags")
	for _, ph := range rep.Phases {
		fmt.Fprintf(w, "  %-12s %8d %8d %8d %8d %8d\n",
			ph.Phase, ph.Executed, len(ph.Skipped), ph.NodesCreated, ph.EdgesCreated, ph.Diagnostics)
	}

	ds := slices.Clone(rep.Diagnostics)
	diag.Sort(ds)
	shown := 0
	for _, d := range ds {
		if d.Suppressed {
			continue
		}
		if shown == 0 {
			headerColor.Fprintln(w, "Diagnostics:")
		}
		shown++
		severityColor(d.Severity).Fprintf(w, "  %-7s", d.Severity)
		fmt.Fprintf(w, " [%s] %s", d.Code, d.Message)
		if d.File != "" {
			fmt.Fprintf(w, " (%s)", d.File)
		}
		fmt.Fprintf(w, " <%s>\n", d.Plugin)
	}
	if rep.SuppressedCount > 0 {
		infoColor.Fprintf(w, "  %d diagnostic(s) suppressed by ignore rules\n", rep.SuppressedCount)
	}
}

// writeFailure explains run-stopping errors. Other errors are left to the
// caller.
func writeFailure(w io.Writer, err error) {
	var strict *diag.StrictModeError
	var internal *pipeline.InternalError
	switch {
	case errors.As(err, &strict):
		fatalColor.Fprintf(w, "FAILED")
		fmt.Fprintf(w, " strict mode stopped after the %s phase: %d fatal diagnostic(s), %d suppressed\n",
			strict.Phase, len(strict.Diagnostics), strict.SuppressedCount)
	case errors.As(err, &internal):
		fatalColor.Fprintf(w, "FAILED")
		fmt.Fprintf(w, " %v\n", internal)
	}
}

func writeOK(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "OK")
	fmt.Fprintf(w, " "+format+"\n", args...)
}
