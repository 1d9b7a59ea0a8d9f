package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Check remaining API credits",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSurfeClient()
		if err != nil {
			return err
		}

		credits, err := client.CheckCredits(cmd.Context())
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(credits, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newSurfeClient()
		if err != nil {
			return err
		}

		if !client.ValidateKey(cmd.Context()) {
			return fmt.Errorf("API key rejected")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "API key is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(creditsCmd)
	rootCmd.AddCommand(validateCmd)
}
