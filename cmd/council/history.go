package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorenzotomasdiez/council/internal/analytics"
	"github.com/lorenzotomasdiez/council/internal/output"
	"github.com/lorenzotomasdiez/council/internal/store"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored debates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			list, err := store.NewBadgerStore(db).List(cmd.Context())
			if err != nil {
				return err
			}
			output.History(cmd.OutOrStdout(), list)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored debate as a markdown report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			state, err := store.NewBadgerStore(db).Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(state)
			}
			fmt.Fprint(cmd.OutOrStdout(), output.Markdown(state))
			return nil
		},
	}
	show.Flags().Bool("json", false, "Print the raw state as JSON")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stored debate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			if err := store.NewBadgerStore(db).Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate agent performance across stored debates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer closeDB(db, &err)

			bs := store.NewBadgerStore(db)
			list, err := bs.List(cmd.Context())
			if err != nil {
				return err
			}
			reports := make([]analytics.Report, 0, len(list))
			for _, s := range list {
				state, err := bs.Get(cmd.Context(), s.ID)
				if err != nil {
					return err
				}
				reports = append(reports, analytics.Analyze(state))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d debates\n", len(reports))
			output.Aggregates(cmd.OutOrStdout(), analytics.AggregateAll(reports))
			return nil
		},
	}

	cmd.AddCommand(show, del, stats)
	return cmd
}
