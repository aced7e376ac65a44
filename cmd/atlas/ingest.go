package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
	"github.com/gyaneshwarpardhi/paperatlas/internal/ingest"
	"github.com/gyaneshwarpardhi/paperatlas/internal/source/arxiv"
	"github.com/gyaneshwarpardhi/paperatlas/internal/store"
)

// openIngester wires the arXiv client to the configured store; done releases
// the database.
func (g *globals) openIngester(cfg *config.Config) (in *ingest.Ingester, done func() error, err error) {
	db, err := store.Open(g.storePath(cfg))
	if err != nil {
		return nil, nil, err
	}
	return ingest.New(arxiv.New(cfg.Arxiv), db), db.Close, nil
}

func ingestCmd(g *globals) *cobra.Command {
	var (
		latest   int
		textFile string
		cites    []string
		backfill int
	)
	cmd := &cobra.Command{
		Use:   "ingest [ARXIV_ID...]",
		Short: "Fetch papers from arXiv into the store",
		Long: `Fetch papers by id, or the newest papers in the configured categories
with --latest. References given with --cites or found in a --text dump of the
paper's full text are stored as citations; cited papers without metadata are
then backfilled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (latest == 0) {
				return errors.New("give arXiv ids or --latest N, not both")
			}
			if (textFile != "" || len(cites) > 0) && len(args) != 1 {
				return errors.New("--text and --cites apply to a single arXiv id")
			}
			cfg, err := g.config()
			if err != nil {
				return err
			}
			in, closeDB, err := g.openIngester(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			ctx := cmd.Context()
			var rep ingest.Report
			if latest > 0 {
				rep, err = in.Latest(ctx, latest)
			} else {
				ids := make([]string, len(args))
				for i, a := range args {
					ids[i] = arxiv.ParseID(a)
				}
				refs, rerr := references(ids[0], textFile, cites)
				if rerr != nil {
					return rerr
				}
				rep, err = in.Papers(ctx, ids, refs)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printReport(out, "ingested", rep)

			if backfill > 0 && rep.Citations > 0 {
				filled, err := in.Backfill(ctx, backfill)
				if err != nil {
					return err
				}
				printReport(out, "backfilled", filled)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&latest, "latest", 0, "Fetch the N newest papers instead of explicit ids")
	cmd.Flags().StringVar(&textFile, "text", "", "Full-text dump to extract arXiv references from")
	cmd.Flags().StringSliceVar(&cites, "cites", nil, "arXiv ids the paper cites")
	cmd.Flags().IntVar(&backfill, "backfill", 20, "Backfill up to N cited papers afterwards (0 disables)")
	return cmd
}

func backfillCmd(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fetch arXiv metadata for papers known only as citation targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			in, closeDB, err := g.openIngester(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			rep, err := in.Backfill(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), "backfilled", rep)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum papers to backfill")
	return cmd
}

func references(id, textFile string, cites []string) (map[string][]string, error) {
	var refs []string
	for _, c := range cites {
		refs = append(refs, arxiv.ParseID(c))
	}
	if textFile != "" {
		text, err := os.ReadFile(textFile)
		if err != nil {
			return nil, err
		}
		for _, r := range arxiv.References(string(text)) {
			if r != id {
				refs = append(refs, r)
			}
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return map[string][]string{id: refs}, nil
}

func printReport(out io.Writer, verb string, rep ingest.Report) {
	fmt.Fprintf(out, "%s %d papers", good.Sprint(verb), len(rep.Stored))
	if rep.Citations > 0 {
		fmt.Fprintf(out, " with %d citations", rep.Citations)
	}
	fmt.Fprintln(out)
	if len(rep.Missing) > 0 {
		fmt.Fprintln(out, subtle.Sprintf("not on arXiv: %s", strings.Join(rep.Missing, ", ")))
	}
}
