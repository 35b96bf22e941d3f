package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/replyloop/internal/auth"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <api-key>",
		Short: "Print the SHA-256 hash of a server API key for replyloop.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyHash := auth.HashAPIKey(args[0])

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SHA-256 Hash: %s\n", keyHash)
			fmt.Fprintln(out, "\nAdd this to your replyloop.yaml:")
			fmt.Fprintln(out, "server:")
			fmt.Fprintln(out, "  api_keys:")
			fmt.Fprintf(out, "    - key_hash: \"%s\"\n", keyHash)
			fmt.Fprintln(out, "      description: \"Generated key\"")
			return nil
		},
	}
}
