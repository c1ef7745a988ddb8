package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage server settings",
	}

	apiKey := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the Gemini API key",
	}
	apiKey.AddCommand(newAPIKeyShowCmd())
	apiKey.AddCommand(newAPIKeySetCmd())
	apiKey.AddCommand(newAPIKeyDeleteCmd())
	apiKey.AddCommand(newAPIKeyTestCmd())

	cmd.AddCommand(apiKey)
	return cmd
}

func newAPIKeyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show whether an API key is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			body, err := client.Get("/api/v1/settings/apikey", nil)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var status KeyStatus
			if err := json.Unmarshal(body, &status); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if !status.Configured {
				printMessage("API key: (not set)")
				return nil
			}
			printMessage("API key: " + status.Masked)
			return nil
		},
	}
}

// keyArg takes the key from args, or reads one line from stdin so it stays
// out of shell history.
func keyArg(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	fmt.Fprint(os.Stderr, "API key: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no API key given")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newAPIKeySetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyArg(args)
			if err != nil {
				return err
			}

			client, err := getClient()
			if err != nil {
				return err
			}

			if _, err := client.Put("/api/v1/settings/apikey", APIKeyRequest{APIKey: key}); err != nil {
				return err
			}
			printMessage("API key saved")
			return nil
		},
	}
}

func newAPIKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			if _, err := client.Delete("/api/v1/settings/apikey"); err != nil {
				return err
			}
			printMessage("API key removed")
			return nil
		},
	}
}

func newAPIKeyTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test [key]",
		Short: "Make a trial call with a key, or with the stored key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getClient()
			if err != nil {
				return err
			}

			var req interface{}
			if len(args) > 0 {
				req = APIKeyRequest{APIKey: strings.TrimSpace(args[0])}
			}

			body, err := client.Post("/api/v1/settings/apikey/test", nil, req)
			if err != nil {
				return err
			}

			if flagJSON {
				printRawJSON(body)
				return nil
			}

			var resp TestKeyResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("API key test failed: %s", resp.Error)
			}
			printMessage("API key works")
			return nil
		},
	}
}
