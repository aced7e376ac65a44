package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

func seedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "seed FILE",
		Short: "Load papers and citations from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			papers, err := store.ReadSeed(f)
			if err != nil {
				return err
			}

			db, err := store.Open(g.storePath(cfg))
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := db.Seed(cmd.Context(), papers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d papers into %s\n", good.Sprint("seeded"), n, db.Path())
			return nil
		},
	}
}

func statsCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store counts and papers still missing metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			db, err := store.Open(g.storePath(cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			papers, citations, err := db.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d\n%s %d\n", accent.Sprint("papers   "), papers, accent.Sprint("citations"), citations)

			missing, err := db.Incomplete(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				return nil
			}
			fmt.Fprintln(out, subtle.Sprintf("%d papers with missing metadata:", len(missing)))
			for _, id := range missing {
				fmt.Fprintln(out, "  "+id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum incomplete papers to list")
	return cmd
}
