// Package builtin wires the reference plugins into a registry.
package builtin

import (
	"github.com/Disentinel/grafema-sub012/internal/discover"
	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/callresolve"
	"github.com/Disentinel/grafema-sub012/internal/plugins/express"
	"github.com/Disentinel/grafema-sub012/internal/plugins/imports"
	"github.com/Disentinel/grafema-sub012/internal/plugins/inherits"
	"github.com/Disentinel/grafema-sub012/internal/plugins/jsast"
	"github.com/Disentinel/grafema-sub012/internal/plugins/modules"
	"github.com/Disentinel/grafema-sub012/internal/plugins/validate"
	"github.com/Disentinel/grafema-sub012/internal/plugins/workspace"
)

// Options configures the builtin plugins.
type Options struct {
	// Discover is shared by the workspace and module discovery plugins.
	Discover *discover.Options
}

// Plugins returns fresh instances of every builtin plugin in registration
// order.
func Plugins(opts Options) []plugin.Plugin {
	return []plugin.Plugin{
		workspace.New(opts.Discover),
		modules.New(opts.Discover),
		jsast.New(),
		express.New(),
		imports.New(),
		inherits.New(),
		callresolve.New(),
		validate.NewEvalBan(),
		validate.NewUnresolvedCalls(),
	}
}

// Names lists the builtin plugin names in registration order.
func Names() []string {
	ps := Plugins(Options{})
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Descriptor().Name
	}
	return out
}

// Register adds every builtin plugin to reg.
func Register(reg *plugin.Registry, opts Options) error {
	for _, p := range Plugins(opts) {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns a registry holding the builtin plugins, restricted to
// enabled when it is non-empty.
func Registry(opts Options, enabled []string) (*plugin.Registry, error) {
	reg := plugin.NewRegistry()
	if err := Register(reg, opts); err != nil {
		return nil, err
	}
	return reg.Subset(enabled)
}
