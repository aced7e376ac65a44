// Command atlas manages the paper store and renders explorer graphs headlessly.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/paperatlas/internal/config"
)

var (
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	subtle = color.New(color.FgHiBlack)
	accent = color.New(color.FgCyan, color.Bold)
)

type globals struct {
	dbPath  string
	cfgPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "atlas",
		Short:         "atlas: research paper graph tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite paper store (defaults to store.path from the config)")
	root.PersistentFlags().StringVar(&g.cfgPath, "config", "", "YAML config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		seedCmd(g),
		statsCmd(g),
		ingestCmd(g),
		backfillCmd(g),
		classifyCmd(g),
		renderCmd(g),
	)
	return root
}

func (g *globals) config() (*config.Config, error) {
	if g.cfgPath == "" {
		return config.Default(), nil
	}
	l, err := config.NewLoader(g.cfgPath)
	if err != nil {
		return nil, err
	}
	return l.Config(), nil
}

func (g *globals) storePath(cfg *config.Config) string {
	if g.dbPath != "" {
		return g.dbPath
	}
	return cfg.Store.Path
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, bad.Sprint("atlas: ")+err.Error())
		os.Exit(1)
	}
}
