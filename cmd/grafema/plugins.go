package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Disentinel/grafema-sub012/internal/plugin"
	"github.com/Disentinel/grafema-sub012/internal/plugins/builtin"
	"github.com/Disentinel/grafema-sub012/internal/tagset"
)

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the builtin plugins in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := builtin.Registry(builtin.Options{}, nil)
			if err != nil {
				return err
			}
			return listPlugins(cmd.OutOrStdout(), reg)
		},
	}
}

func listPlugins(w io.Writer, reg *plugin.Registry) error {
	all := reg.All()
	for _, ph := range plugin.Phases {
		ordered, err := plugin.Order(ph, all)
		if err != nil {
			return err
		}
		if len(ordered) == 0 {
			continue
		}
		headerColor.Fprintf(w, "%s\n", ph)
		for _, p := range ordered {
			d := p.Descriptor()
			fmt.Fprintf(w, "  %s", d.Name)
			if len(d.Dependencies) > 0 {
				fmt.Fprintf(w, "  after=%s", strings.Join(d.Dependencies, ","))
			}
			if !d.Covers.Empty() {
				fmt.Fprintf(w, "  covers=%s", join(d.Covers))
			}
			if !d.Consumes.Empty() {
				fmt.Fprintf(w, "  consumes=%s", join(d.Consumes))
			}
			if !d.Produces.Empty() {
				fmt.Fprintf(w, "  produces=%s", join(d.Produces))
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func join[T ~string](s tagset.Set[T]) string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, t := range sorted {
		out[i] = string(t)
	}
	return strings.Join(out, ",")
}
