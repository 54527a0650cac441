package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Disentinel/grafema-sub012/internal/fqn"
	"github.com/Disentinel/grafema-sub012/internal/scope"
)

func newIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Compute or parse semantic identifiers",
	}
	cmd.AddCommand(newIDParseCmd(), newIDComputeCmd())
	return cmd
}

func newIDParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <id>",
		Short: "Split a semantic identifier into its parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := fqn.Parse(args[0])
			if !ok {
				return fmt.Errorf("%q is not a semantic identifier", args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file:  %s\n", id.File)
			fmt.Fprintf(w, "scope: %s\n", strings.Join(id.ScopePath, " > "))
			fmt.Fprintf(w, "type:  %s\n", id.Type)
			fmt.Fprintf(w, "name:  %s\n", id.Name)
			if id.HasDiscriminator {
				fmt.Fprintf(w, "disc:  %d\n", id.Discriminator)
			}
			return nil
		},
	}
}

func newIDComputeCmd() *cobra.Command {
	var (
		file   string
		scopes []string
		disc   int
	)
	cmd := &cobra.Command{
		Use:   "compute <type> <name>",
		Short: "Build the semantic identifier of a declaration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []fqn.Option
			if cmd.Flags().Changed("disc") {
				opts = append(opts, fqn.WithDiscriminator(disc))
			}
			id, err := fqn.Compute(args[0], args[1], scopeContext(file, scopes), opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "project-relative file path")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "enclosing scope segments, outermost first")
	cmd.Flags().IntVar(&disc, "disc", 0, "discriminator for repeated names")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func scopeContext(file string, path []string) scope.Context {
	return scope.Context{File: file, ScopePath: path}
}
