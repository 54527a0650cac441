package plugin

import (
	"fmt"
	"slices"
	"strings"
)

// CycleError reports a dependency cycle among plugins of one phase. Path
// starts and ends with the same plugin.
type CycleError struct {
	Phase Phase
	Path  []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle in %s phase: %s", e.Phase, strings.Join(e.Path, " -> "))
}

// Order returns the plugins of phase in dependency order. Dependencies on
// plugins outside the phase subset are ignored. Among plugins whose
// dependencies are all satisfied, the one earlier in plugins goes first, so
// the result is deterministic for a fixed registration order. A cycle yields
// *CycleError and no order.
func Order(phase Phase, plugins []Plugin) ([]Plugin, error) {
	var (
		subset []Plugin
		descs  []Descriptor
	)
	for _, p := range plugins {
		d := p.Descriptor()
		if d.Phase != phase {
			continue
		}
		subset = append(subset, p)
		descs = append(descs, d)
	}

	idx, err := order(phase, descs)
	if err != nil {
		return nil, err
	}
	out := make([]Plugin, len(idx))
	for i, j := range idx {
		out[i] = subset[j]
	}
	return out, nil
}

// order runs Kahn's algorithm over descs (all of one phase) and returns
// indexes into descs.
func order(phase Phase, descs []Descriptor) ([]int, error) {
	n := len(descs)
	index := make(map[string]int, n)
	for i, d := range descs {
		if _, dup := index[d.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.Name)
		}
		index[d.Name] = i
	}

	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i, d := range descs {
		for _, dep := range d.Dependencies {
			j, ok := index[dep]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// ready stays sorted so the lowest registration index is always next.
	var ready []int
	for i := range n {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}
	out := make([]int, 0, n)
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		out = append(out, cur)
		for _, k := range dependents[cur] {
			indegree[k]--
			if indegree[k] == 0 {
				pos, _ := slices.BinarySearch(ready, k)
				ready = slices.Insert(ready, pos, k)
			}
		}
	}

	if len(out) < n {
		return nil, &CycleError{Phase: phase, Path: cyclePath(descs, index, indegree)}
	}
	return out, nil
}

// cyclePath walks unmet dependencies from the first blocked plugin until a
// plugin repeats. Every blocked plugin has at least one blocked dependency, so
// the walk always closes.
func cyclePath(descs []Descriptor, index map[string]int, indegree []int) []string {
	start := slices.IndexFunc(indegree, func(d int) bool { return d > 0 })
	if start < 0 {
		return nil
	}
	seenAt := make(map[int]int)
	var path []int
	cur := start
	for {
		if pos, ok := seenAt[cur]; ok {
			names := make([]string, 0, len(path)-pos+1)
			for _, i := range path[pos:] {
				names = append(names, descs[i].Name)
			}
			return append(names, descs[cur].Name)
		}
		seenAt[cur] = len(path)
		path = append(path, cur)

		next := -1
		for _, dep := range descs[cur].Dependencies {
			if j, ok := index[dep]; ok && indegree[j] > 0 {
				next = j
				break
			}
		}
		if next < 0 {
			return []string{descs[cur].Name}
		}
		cur = next
	}
}
