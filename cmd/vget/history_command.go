package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vget/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded downloads",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded downloads, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.FinishedAt.Local().Format("2006-01-02 15:04"),
					string(entry.Status),
					historySize(entry),
					entry.URL,
					historyTarget(entry),
				})
			}
			table := renderTable(
				[]string{"Finished", "Status", "Size", "URL", "File"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all {
				return errors.New("pass --all to confirm clearing the whole history")
			}
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Confirm deleting every entry")
	return cmd
}

func historySize(entry history.Entry) string {
	if entry.Bytes <= 0 {
		return "-"
	}
	return formatBytes(entry.Bytes)
}

func historyTarget(entry history.Entry) string {
	if entry.FilePath != "" {
		return entry.FilePath
	}
	if entry.Detail != "" {
		return shortURL(entry.Detail)
	}
	return "-"
}
