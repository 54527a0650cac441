// Package fqn computes semantic identifiers for graph nodes.
//
// Format: <file>-><scope>->...-><TYPE>-><name>[#<n>]
// Examples:
//   - src/api.js->FUNCTION->handler
//   - src/api.js->handler->if#1->CALL->send#0
//   - src/app.js->MODULE->src/app.js
//
// Identifiers depend only on semantic position, never on line or column, so
// an unrelated edit elsewhere in a file leaves them unchanged.
package fqn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Disentinel/grafema-sub012/internal/scope"
)

// Separator joins identifier segments.
const Separator = "->"

// ErrInvalidSegment is returned when an input would make the identifier
// ambiguous to Parse.
var ErrInvalidSegment = errors.New("invalid identifier segment")

type options struct {
	discriminator int
	hasDisc       bool
}

// Option customises Compute.
type Option func(*options)

// WithDiscriminator appends "#n" to the name segment.
func WithDiscriminator(n int) Option {
	return func(o *options) {
		o.discriminator = n
		o.hasDisc = true
	}
}

// Compute returns the semantic identifier for a node of type typ named name
// declared at ctx.
func Compute(typ, name string, ctx scope.Context, opts ...Option) (string, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := validatePlain("file", ctx.File); err != nil {
		return "", err
	}
	if err := validatePlain("type", typ); err != nil {
		return "", err
	}
	if strings.Contains(typ, "#") {
		return "", fmt.Errorf("%w: type %q contains '#'", ErrInvalidSegment, typ)
	}
	if err := validateName("name", name); err != nil {
		return "", err
	}
	for _, seg := range ctx.ScopePath {
		if err := validateScopeSegment(seg); err != nil {
			return "", err
		}
	}
	if o.hasDisc && o.discriminator < 0 {
		return "", fmt.Errorf("%w: negative discriminator %d", ErrInvalidSegment, o.discriminator)
	}

	var sb strings.Builder
	sb.WriteString(ctx.File)
	sb.WriteString(Separator)
	for _, seg := range ctx.ScopePath {
		sb.WriteString(seg)
		sb.WriteString(Separator)
	}
	sb.WriteString(typ)
	sb.WriteString(Separator)
	sb.WriteString(name)
	if o.hasDisc {
		sb.WriteByte('#')
		sb.WriteString(strconv.Itoa(o.discriminator))
	}
	return sb.String(), nil
}

// MustCompute is Compute for inputs already known to be valid. It panics on
// error.
func MustCompute(typ, name string, ctx scope.Context, opts ...Option) string {
	id, err := Compute(typ, name, ctx, opts...)
	if err != nil {
		panic(err)
	}
	return id
}

// ModuleID returns the identifier of the MODULE node for a file.
func ModuleID(relPath string) (string, error) {
	return Compute("MODULE", relPath, scope.Context{File: relPath})
}

// ID is a parsed semantic identifier.
type ID struct {
	File             string
	ScopePath        []string
	Type             string
	Name             string
	Discriminator    int
	HasDiscriminator bool
}

// Context returns the scope context the identifier was computed from.
func (id ID) Context() scope.Context {
	return scope.Context{File: id.File, ScopePath: id.ScopePath}
}

// String recomputes the identifier.
func (id ID) String() string {
	var opts []Option
	if id.HasDiscriminator {
		opts = append(opts, WithDiscriminator(id.Discriminator))
	}
	s, err := Compute(id.Type, id.Name, id.Context(), opts...)
	if err != nil {
		return ""
	}
	return s
}

// Parse splits a semantic identifier. ok is false for any string Compute
// cannot produce, including legacy hash-based ids.
func Parse(s string) (id ID, ok bool) {
	parts := strings.Split(s, Separator)
	if len(parts) < 3 {
		return ID{}, false
	}
	for _, p := range parts {
		if p == "" {
			return ID{}, false
		}
	}
	id.File = parts[0]
	id.Type = parts[len(parts)-2]
	if strings.Contains(id.Type, "#") {
		return ID{}, false
	}

	last := parts[len(parts)-1]
	if base, n, has := splitDiscriminator(last); has {
		if base == "" || endsWithDiscriminator(base) {
			return ID{}, false
		}
		id.Name, id.Discriminator, id.HasDiscriminator = base, n, true
	} else {
		id.Name = last
	}

	scopes := parts[1 : len(parts)-2]
	id.ScopePath = make([]string, len(scopes))
	for i, seg := range scopes {
		if validateScopeSegment(seg) != nil {
			return ID{}, false
		}
		id.ScopePath[i] = seg
	}
	return id, true
}

// IsSemantic reports whether s parses as a semantic identifier.
func IsSemantic(s string) bool {
	_, ok := Parse(s)
	return ok
}

func validatePlain(what, s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidSegment, what)
	}
	if strings.Contains(s, Separator) {
		return fmt.Errorf("%w: %s %q contains %q", ErrInvalidSegment, what, s, Separator)
	}
	return nil
}

func validateName(what, s string) error {
	if err := validatePlain(what, s); err != nil {
		return err
	}
	if endsWithDiscriminator(s) {
		return fmt.Errorf("%w: %s %q ends with a discriminator suffix", ErrInvalidSegment, what, s)
	}
	return nil
}

// validateScopeSegment accepts "label" or "label#N" where label itself does
// not end in "#<digits>".
func validateScopeSegment(seg string) error {
	if err := validatePlain("scope segment", seg); err != nil {
		return err
	}
	if base, _, has := splitDiscriminator(seg); has {
		if base == "" || endsWithDiscriminator(base) {
			return fmt.Errorf("%w: scope segment %q", ErrInvalidSegment, seg)
		}
	}
	return nil
}

func endsWithDiscriminator(s string) bool {
	_, _, has := splitDiscriminator(s)
	return has
}

// splitDiscriminator splits "label#12" into ("label", 12, true). Leading
// zeros and signs are not produced by Compute and are rejected.
func splitDiscriminator(s string) (string, int, bool) {
	i := strings.LastIndexByte(s, '#')
	if i < 0 || i == len(s)-1 {
		return s, 0, false
	}
	digits := s[i+1:]
	for j := 0; j < len(digits); j++ {
		if digits[j] < '0' || digits[j] > '9' {
			return s, 0, false
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return s, 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
