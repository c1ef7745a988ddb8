package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newOverviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Search engine AI overview commands",
	}

	cmd.AddCommand(newOverviewCheckCmd())
	cmd.AddCommand(newOverviewLatestCmd())
	return cmd
}

func newOverviewCheckCmd() *cobra.Command {
	var aiMode bool

	cmd := &cobra.Command{
		Use:   "check <query>",
		Short: "Check whether a query shows an AI overview",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			req := CheckOverviewRequest{Query: strings.Join(args, " "), UseAIMode: aiMode}
			body, err := client.Post("/api/v1/overview/check", nil, req)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp CheckOverviewResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if resp.HasAIOverview {
				printMessage(fmt.Sprintf("%q: AI overview shown", resp.Query))
			} else {
				printMessage(fmt.Sprintf("%q: no AI overview", resp.Query))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&aiMode, "ai-mode", false, "Check the AI mode result page")
	return cmd
}

func newOverviewLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent captured event and search display",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/latest", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var latest Latest
			if err := json.Unmarshal(body, &latest); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if ev := latest.Event; ev != nil {
				printMessage("Chat queries: " + strings.Join(ev.Queries, " | "))
				if ev.Scores != nil {
					printMessage(fmt.Sprintf("  simple %s%%  complex %s%%  no search %s%%",
						ev.Scores.SimpleSearch, ev.Scores.ComplexSearch, ev.Scores.NoSearch))
				}
				printMessage(fmt.Sprintf("  %d sources retrieved, %d cited", len(ev.SourcesRetrieved), len(ev.SourcesCited)))
			}
			if s := latest.Search; s != nil {
				line := fmt.Sprintf("Search (%s): %s", s.Source, strings.Join(s.Queries, " | "))
				if s.Error != "" {
					line = fmt.Sprintf("Search (%s): error: %s", s.Source, s.Error)
				} else if s.StatusText != "" {
					line += " [" + s.StatusText + "]"
				}
				printMessage(line)
			}
			if o := latest.Overview; o != nil {
				printMessage(fmt.Sprintf("Overview check %q: %v", o.Query, o.HasAIOverview))
			}
			if latest.Event == nil && latest.Search == nil && latest.Overview == nil {
				printMessage("Nothing captured yet")
			}
			return nil
		},
	}
}

func newSearchBatchCmd() *cobra.Command {
	var (
		file    string
		aiMode  bool
		publish bool
		output  string
	)

	cmd := &cobra.Command{
		Use:   "search-batch [query...]",
		Short: "Ground a list of queries and check each for an AI overview",
		Long:  "Runs every query through the grounding model and the overview check. Queries are taken from the arguments, or one per line from --file (use - for stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			queries := append([]string(nil), args...)
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				queries = append(queries, lines...)
			}
			if len(queries) == 0 {
				return fmt.Errorf("no queries given")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			req := SearchBatchRequest{Queries: queries, UseAIMode: aiMode, Publish: publish}
			if output != "" {
				data, err := client.Post("/api/v1/search-batch", url.Values{"format": {"csv"}}, req)
				if err != nil {
					return err
				}
				path, err := writeCSV(output, "google-ai-queries", data)
				if err != nil {
					return err
				}
				printMessage("Saved " + path)
				return nil
			}

			body, err := client.Post("/api/v1/search-batch", nil, req)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp SearchBatchResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			headers := []string{"QUERY", "OVERVIEW", "GENERATED QUERIES"}
			var rows [][]string
			for _, r := range resp.Results {
				generated := strings.Join(r.SearchQueries, " | ")
				if r.Error != "" {
					generated = "error: " + r.Error
				}
				overview := "No"
				if r.HasAIOverview {
					overview = "Yes"
				}
				rows = append(rows, []string{truncate(r.OriginalQuery, 40), overview, truncate(generated, 80)})
			}
			printTable(headers, rows)

			if resp.Artifact != nil {
				printMessage(fmt.Sprintf("\nPublished %s", resp.Artifact.Key))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one query per line")
	cmd.Flags().BoolVar(&aiMode, "ai-mode", false, "Use the AI mode model and result page")
	cmd.Flags().BoolVar(&publish, "publish", false, "Store the CSV export on the server")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save results as CSV to this file")
	return cmd
}
