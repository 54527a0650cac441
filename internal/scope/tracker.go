// Package scope tracks the enclosing-scope stack during one file traversal
// and renders it into the scope path used by semantic identifiers.
//
// A Tracker belongs to exactly one traversal. Concurrent unit executions each
// create their own trackers; nothing here is shared or global.
package scope

import (
	"fmt"
	"strconv"
)

// Kind distinguishes frames that render as a bare label from frames that
// carry a discriminator.
type Kind uint8

const (
	// Named frames are functions, classes and methods.
	Named Kind = iota
	// Counted frames are anonymous blocks (if, for, try, ...).
	Counted
)

func (k Kind) String() string {
	if k == Counted {
		return "counted"
	}
	return "named"
}

type frame struct {
	kind          Kind
	label         string
	discriminator int
	// scopeCounters hands out discriminators to counted child frames.
	scopeCounters map[string]int
	// itemCounters hands out discriminators to same-key occurrences (calls,
	// variables) directly inside this frame.
	itemCounters map[string]int
}

func newFrame(kind Kind, label string, disc int) *frame {
	return &frame{
		kind:          kind,
		label:         label,
		discriminator: disc,
		scopeCounters: make(map[string]int),
		itemCounters:  make(map[string]int),
	}
}

func (f *frame) segment() string {
	if f.kind == Counted || f.discriminator > 0 {
		return f.label + "#" + strconv.Itoa(f.discriminator)
	}
	return f.label
}

// Context is an immutable snapshot of a tracker's position.
type Context struct {
	File      string
	ScopePath []string
}

// InvariantError reports unbalanced enter/exit. It is raised with panic:
// every identifier generated after it in the same traversal would be wrong.
type InvariantError struct {
	File string
	Op   string
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scope tracker %s (%s): %s", e.Op, e.File, e.Msg)
}

// Tracker is a per-traversal stack of scope frames. The bottom frame is the
// file itself and is never rendered or popped.
type Tracker struct {
	file  string
	stack []*frame
}

// NewTracker starts a traversal of file.
func NewTracker(file string) *Tracker {
	return &Tracker{
		file:  file,
		stack: []*frame{newFrame(Named, "", 0)},
	}
}

func (t *Tracker) current() *frame {
	return t.stack[len(t.stack)-1]
}

// EnterScope pushes a named frame (function, class, method).
func (t *Tracker) EnterScope(label string) {
	t.stack = append(t.stack, newFrame(Named, label, 0))
}

// EnterNamedScope pushes a named frame and returns its discriminator. The
// first frame with a given label under one parent renders bare; repeats
// (getter/setter pairs, redeclarations) render as "label#n". Named and counted
// frames with the same label draw from one counter, so they never collide.
func (t *Tracker) EnterNamedScope(label string) int {
	parent := t.current()
	disc := parent.scopeCounters[label]
	parent.scopeCounters[label] = disc + 1
	t.stack = append(t.stack, newFrame(Named, label, disc))
	return disc
}

// EnterCountedScope pushes an anonymous frame whose discriminator is the
// parent's counter for label, then advances that counter. The discriminator
// is returned so the caller can tag a companion record with it.
func (t *Tracker) EnterCountedScope(label string) int {
	parent := t.current()
	disc := parent.scopeCounters[label]
	parent.scopeCounters[label] = disc + 1
	t.stack = append(t.stack, newFrame(Counted, label, disc))
	return disc
}

// ExitScope pops the current frame. Popping past the file frame panics with
// *InvariantError.
func (t *Tracker) ExitScope() {
	if len(t.stack) <= 1 {
		panic(&InvariantError{File: t.file, Op: "exit", Msg: "exit without matching enter"})
	}
	t.stack[len(t.stack)-1] = nil
	t.stack = t.stack[:len(t.stack)-1]
}

// ItemCounter returns the current frame's counter for key and advances it.
func (t *Tracker) ItemCounter(key string) int {
	f := t.current()
	n := f.itemCounters[key]
	f.itemCounters[key] = n + 1
	return n
}

// Context snapshots the file and rendered scope path.
func (t *Tracker) Context() Context {
	path := make([]string, 0, len(t.stack)-1)
	for _, f := range t.stack[1:] {
		path = append(path, f.segment())
	}
	return Context{File: t.file, ScopePath: path}
}

// Depth returns the number of open frames above the file frame.
func (t *Tracker) Depth() int {
	return len(t.stack) - 1
}

// File returns the file this tracker traverses.
func (t *Tracker) File() string {
	return t.file
}

// CheckBalanced panics with *InvariantError when frames are still open. Call
// it at the end of a traversal.
func (t *Tracker) CheckBalanced() {
	if d := t.Depth(); d != 0 {
		panic(&InvariantError{File: t.file, Op: "finish", Msg: fmt.Sprintf("%d scope(s) left open", d)})
	}
}
