package plugin

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPhase is returned for a descriptor or name outside the five
// pipeline phases.
var ErrUnknownPhase = errors.New("unknown phase")

// Phase is one stage of the pipeline. The zero value is invalid.
type Phase uint8

const (
	Discovery Phase = iota + 1
	Indexing
	Analysis
	Enrichment
	Validation
)

// Phases lists every phase in execution order.
var Phases = []Phase{Discovery, Indexing, Analysis, Enrichment, Validation}

var phaseNames = map[Phase]string{
	Discovery:  "discovery",
	Indexing:   "indexing",
	Analysis:   "analysis",
	Enrichment: "enrichment",
	Validation: "validation",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Valid reports whether p is one of the five phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// PerUnit reports whether the phase runs once per analysis unit rather than
// once per project.
func (p Phase) PerUnit() bool {
	return p == Indexing || p == Analysis
}

// ParsePhase maps a case-insensitive phase name to its value.
func ParsePhase(s string) (Phase, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for p, name := range phaseNames {
		if name == want {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}
