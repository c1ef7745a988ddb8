package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run prompt batches against the chat assistant",
	}

	cmd.AddCommand(newBatchStartCmd())
	cmd.AddCommand(newBatchStatusCmd())
	cmd.AddCommand(newBatchStopCmd())
	cmd.AddCommand(newBatchClearCmd())
	cmd.AddCommand(newBatchExportCmd())
	return cmd
}

func newBatchStartCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "start [prompt...]",
		Short: "Start a batch with the given prompts",
		Long:  "Start a batch. Prompts are taken from the arguments, or one per line from --file (use - for stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts := append([]string(nil), args...)
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return err
				}
				prompts = append(prompts, lines...)
			}
			if len(prompts) == 0 {
				return fmt.Errorf("no prompts given")
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/batch", nil, StartBatchRequest{Prompts: prompts})
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var status BatchStatus
			if err := json.Unmarshal(body, &status); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			printMessage(fmt.Sprintf("Batch %s started with %d prompts", status.Run.ID, len(status.Run.Prompts)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one prompt per line")
	return cmd
}

func newBatchStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show batch progress and results",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/batch", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var status BatchStatus
			if err := json.Unmarshal(body, &status); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			printBatchStatus(status)
			return nil
		},
	}
}

func printBatchStatus(status BatchStatus) {
	if status.Run == nil {
		printMessage("No batch")
		return
	}

	run := status.Run
	line := fmt.Sprintf("Batch %s: %s", run.ID, status.State)
	if status.Phase != "" {
		line += fmt.Sprintf(" (%s)", status.Phase)
	}
	printMessage(line)
	printMessage(fmt.Sprintf("Progress: %d/%d\n", run.Index, len(run.Prompts)))

	headers := []string{"#", "PROMPT", "QUERIES", "SIMPLE %", "COMPLEX %", "NO SEARCH %", "CITED"}
	var rows [][]string
	for i, prompt := range run.Prompts {
		row := []string{strconv.Itoa(i + 1), truncate(prompt, 40), "", "", "", "", ""}
		if i < len(run.Results) && run.Results[i] != nil {
			r := run.Results[i]
			row[2] = truncate(strings.Join(r.Queries, " | "), 60)
			if r.Scores != nil {
				row[3] = r.Scores.SimpleSearch
				row[4] = r.Scores.ComplexSearch
				row[5] = r.Scores.NoSearch
			}
			row[6] = strconv.Itoa(len(r.SourcesCited))
		}
		rows = append(rows, row)
	}
	printTable(headers, rows)
}

func newBatchStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running batch after the current prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Post("/api/v1/batch/stop", nil, nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}
			printMessage("Batch stopped")
			return nil
		},
	}
}

func newBatchClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the finished batch and its results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmAction("Discard batch results?", yes) {
				printMessage("Aborted")
				return nil
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if _, err := client.Delete("/api/v1/batch"); err != nil {
				return err
			}
			printMessage("Batch cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func newBatchExportCmd() *cobra.Command {
	var output string
	var publish bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the batch results as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			if publish {
				body, err := client.Post("/api/v1/batch/export", nil, nil)
				if err != nil {
					return err
				}
				return printArtifact(body)
			}

			data, err := client.Get("/api/v1/batch", url.Values{"format": {"csv"}})
			if err != nil {
				return err
			}
			path, err := writeCSV(output, "chatgpt-batch", data)
			if err != nil {
				return err
			}
			printMessage("Saved " + path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default chatgpt-batch-<date>.csv)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Store the export on the server instead of downloading it")
	return cmd
}

func printArtifact(body []byte) error {
	if flagJSON {
		printRawJSON(body)
		return nil
	}

	var art Artifact
	if err := json.Unmarshal(body, &art); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	printMessage(fmt.Sprintf("Published %s (%d bytes)", art.Key, art.Size))
	printMessage("  URL: " + art.URL)
	return nil
}
