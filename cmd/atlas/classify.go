package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/paperatlas/internal/classify"
)

func classifyCmd(g *globals) *cobra.Command {
	var (
		abstract string
		authors  []string
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "classify [TITLE]",
		Short: "Show which research domain the configured rules assign to a paper",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			c, err := classify.New(cfg.Classify)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if list || len(args) == 0 {
				domains := c.Domains()
				for i, d := range domains[:len(domains)-1] {
					fmt.Fprintf(out, "%s %s\n", subtle.Sprintf("%2d.", i+1), d)
				}
				fmt.Fprintf(out, "%s %s\n", subtle.Sprint("  *"), domains[len(domains)-1])
				return nil
			}
			domain := c.Domain(classify.Input{Title: args[0], Abstract: abstract, Authors: authors})
			fmt.Fprintf(out, "%s %s\n", accent.Sprint(domain), subtle.Sprint("← "+strings.TrimSpace(args[0])))
			return nil
		},
	}
	cmd.Flags().StringVar(&abstract, "abstract", "", "Paper abstract")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "Paper author (repeatable)")
	cmd.Flags().BoolVar(&list, "list", false, "List the domain rules in match order")
	return cmd
}
