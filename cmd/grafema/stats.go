package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Disentinel/grafema-sub012/internal/pipeline"
	"github.com/Disentinel/grafema-sub012/internal/store"
)

func newStatsCmd() *cobra.Command {
	var cfgPath, db string
	cmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Summarize the stored graph of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(root, cfgPath)
			if err != nil {
				return err
			}
			if db != "" {
				cfg.Database = db
			}
			dbPath := cfg.DatabasePath(root)
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no graph at %s; run `grafema analyze` first", dbPath)
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			name := pipeline.ProjectNameFromPath(root)
			proj, err := st.GetProject(name)
			if err != nil {
				return err
			}
			if proj == nil {
				return fmt.Errorf("project %s has not been analyzed", root)
			}
			stats, err := st.GetStats(name)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			headerColor.Fprintf(w, "%s\n", proj.RootPath)
			fmt.Fprintf(w, "  run %s at %s\n", proj.RunID, proj.IndexedAt)
			fmt.Fprintf(w, "  nodes: %d  edges: %d  legacy ids: %d\n", stats.Nodes, stats.Edges, stats.LegacyIDs)
			for _, tc := range stats.NodeTypes {
				fmt.Fprintf(w, "  node %-12s %d\n", tc.Type, tc.Count)
			}
			for _, tc := range stats.EdgeTypes {
				fmt.Fprintf(w, "  edge %-12s %d\n", tc.Type, tc.Count)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "config file")
	cmd.Flags().StringVar(&db, "db", "", "graph database path")
	return cmd
}
