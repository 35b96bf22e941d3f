package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/replyloop/internal/approval"
	"github.com/tjfontaine/replyloop/internal/domain"
)

func newProbeCmd(global *globalOptions) *cobra.Command {
	var webhookURL string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Post a sample draft to the approval webhook and print the decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if webhookURL != "" {
				cfg.Approval.URL = webhookURL
			}
			if cfg.Approval.URL == "" {
				return errors.New("approval.url is required")
			}

			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}

			gate, err := newGate(cfg, logger)
			if err != nil {
				return err
			}

			fb, err := approval.Probe(cmd.Context(), gate, domain.Sender{
				Name:    cfg.Sender.Name,
				Email:   cfg.Sender.Email,
				Subject: cfg.Sender.Subject,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(fb); err != nil {
				return fmt.Errorf("encode decision: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "Approval webhook URL (overrides approval.url)")
	return cmd
}
