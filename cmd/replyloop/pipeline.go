package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/replyloop/internal/agent"
	"github.com/tjfontaine/replyloop/internal/approval"
	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/config"
	"github.com/tjfontaine/replyloop/internal/domain"
	"github.com/tjfontaine/replyloop/internal/registration"
	"github.com/tjfontaine/replyloop/internal/tokens"
	"github.com/tjfontaine/replyloop/internal/workflow"
)

// buildPipeline wires the backend, agents, gate and orchestrator from cfg.
// reg may be nil, in which case no metrics are recorded.
func buildPipeline(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, hooks workflow.LifecycleHooks) (*workflow.Orchestrator, error) {
	registration.RegisterBuiltins()

	llm, err := backend.New(backend.Settings{
		Type:        cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	})
	if err != nil {
		return nil, err
	}
	metered := backend.NewMetered(llm, tokens.NewCounter(), cfg.LLM.Model, cfg.LLM.MaxPromptTokens, logger)

	summarizer, err := agent.NewSummarizer(metered,
		agent.WithFocus(cfg.Workflow.Focus),
		agent.WithStructuredOutput(cfg.LLM.StructuredOutput))
	if err != nil {
		return nil, err
	}
	drafter, err := agent.NewDrafter(metered, agent.WithStructuredOutput(cfg.LLM.StructuredOutput))
	if err != nil {
		return nil, err
	}
	refiner, err := agent.NewRefiner(metered)
	if err != nil {
		return nil, err
	}

	gate, err := newGate(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := []workflow.Option{
		workflow.WithMaxRevisions(cfg.Workflow.MaxRevisions),
		workflow.WithDefaultSender(domain.Sender{
			Name:    cfg.Sender.Name,
			Email:   cfg.Sender.Email,
			Subject: cfg.Sender.Subject,
		}),
		workflow.WithLogger(logger),
		workflow.WithLifecycleHooks(hooks),
	}
	if reg != nil {
		opts = append(opts, workflow.WithMetrics(workflow.NewMetrics(reg)))
	}

	return workflow.New(workflow.Agents{
		Summarizer: summarizer,
		Drafter:    drafter,
		Refiner:    refiner,
	}, gate, opts...)
}

func newGate(cfg *config.Config, logger *slog.Logger) (*approval.WebhookGate, error) {
	return approval.NewWebhookGate(approval.WebhookGateConfig{
		URL:                 cfg.Approval.URL,
		Timeout:             cfg.ApprovalTimeout(),
		ApproveOption:       cfg.Approval.ApproveOption,
		Headers:             cfg.Approval.Headers,
		DenyPrivateNetworks: cfg.Approval.DenyPrivateNetworks,
		Logger:              logger,
	})
}
