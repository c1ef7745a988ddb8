package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newExportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exports",
		Short: "Manage exports published on the server",
	}

	cmd.AddCommand(newExportsListCmd())
	return cmd
}

func newExportsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List published exports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/exports", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var arts []Artifact
			if err := json.Unmarshal(body, &arts); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"KEY", "SIZE", "CREATED AT", "URL"}
			var rows [][]string
			for _, a := range arts {
				rows = append(rows, []string{a.Key, strconv.FormatInt(a.Size, 10), formatTime(a.CreatedAt), a.URL})
			}
			printTable(headers, rows)
			printMessage(fmt.Sprintf("\nTotal: %d exports", len(arts)))
			return nil
		},
	}
}
