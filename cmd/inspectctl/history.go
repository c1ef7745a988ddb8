package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect captured search queries",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryClearCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List captured queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/history", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var entries []HistoryEntry
			if err := json.Unmarshal(body, &entries); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}

			headers := []string{"TIME", "SOURCE", "MODE", "QUERIES"}
			var rows [][]string
			for _, e := range entries {
				queries := strings.Join(e.Queries, " | ")
				if e.Error != "" {
					queries = "error: " + e.Error
				}
				rows = append(rows, []string{
					formatTime(e.Timestamp),
					e.Source,
					e.Mode,
					truncate(queries, 80),
				})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nTotal: %d entries", len(entries)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many entries")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			data, err := client.Get("/api/v1/history", url.Values{"format": {"csv"}})
			if err != nil {
				return err
			}
			path, err := writeCSV(output, "search-queries", data)
			if err != nil {
				return err
			}
			printMessage("Saved " + path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default search-queries-<date>.csv)")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all captured queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction("Clear all history?", yes) {
				printMessage("Aborted")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if _, err := client.Delete("/api/v1/history"); err != nil {
				return err
			}
			printMessage("History cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}
