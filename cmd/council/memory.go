package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/council/internal/output"
)

func newMemoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Manage the memory injected into debates",
	}

	ingest := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Split and embed the .txt, .md and .json files in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			p, err := a.provider(cmd.Context(), db, a.client())
			if err != nil {
				return err
			}
			n, err := p.Ingest(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d chunks from %s (%s backend)\n", n, args[0], a.cfg.Memory.Backend)
			return nil
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Show what a debate on this query would retrieve",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			p, err := a.provider(cmd.Context(), db, a.client())
			if err != nil {
				return err
			}
			snippets, err := p.Retrieve(cmd.Context(), "", strings.Join(args, " "))
			if err != nil {
				return err
			}
			output.Snippets(cmd.OutOrStdout(), snippets)
			return nil
		},
	}

	cmd.AddCommand(ingest, search)
	return cmd
}
