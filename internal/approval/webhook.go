package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/replyloop/internal/domain"
	"github.com/tjfontaine/replyloop/internal/pkg/safehttp"
)

// maxResponseBytes bounds how much of the approver's reply is read.
const maxResponseBytes = 1 << 20

// WebhookGate posts drafts to a chat-ops webhook and blocks for its reply.
type WebhookGate struct {
	url           string
	timeout       time.Duration
	approveOption string
	headers       map[string]string
	client        *http.Client
	logger        *slog.Logger
}

// WebhookGateConfig configures a webhook gate.
type WebhookGateConfig struct {
	URL string
	// Timeout bounds each review round trip. Zero disables the bound.
	Timeout time.Duration
	// ApproveOption is the selected-option value treated as approval.
	// Defaults to DefaultApproveOption.
	ApproveOption string
	Headers       map[string]string
	// DenyPrivateNetworks refuses to dial loopback and private addresses.
	DenyPrivateNetworks bool
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// webhookRequest is the JSON body posted to the approver.
type webhookRequest struct {
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	Subject     string `json:"subject"`
	ThreadText  string `json:"thread_text"`
}

// webhookResponse is the approver's reply. Pointers distinguish missing
// fields from empty ones.
type webhookResponse struct {
	SelectedOption *string `json:"selected-option"`
	Comment        *string `json:"comment"`
}

// NewWebhookGate creates a new webhook gate.
func NewWebhookGate(cfg WebhookGateConfig) (*WebhookGate, error) {
	if cfg.URL == "" {
		return nil, errors.New("approval: webhook url is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("approval: negative timeout %s", cfg.Timeout)
	}

	approveOption := strings.TrimSpace(cfg.ApproveOption)
	if approveOption == "" {
		approveOption = DefaultApproveOption
	}

	client := cfg.HTTPClient
	if client == nil {
		var base http.RoundTripper = http.DefaultTransport
		if cfg.DenyPrivateNetworks {
			base = safehttp.NewTransport()
		}
		client = &http.Client{Transport: otelhttp.NewTransport(base)}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookGate{
		url:           cfg.URL,
		timeout:       cfg.Timeout,
		approveOption: approveOption,
		headers:       cfg.Headers,
		client:        client,
		logger:        logger,
	}, nil
}

// Review posts the draft and waits for the approver's decision.
func (g *WebhookGate) Review(ctx context.Context, sub Submission) (*domain.Feedback, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	g.logger.Info("approval requested",
		slog.String("run_id", sub.RunID),
		slog.Int("revision", sub.Draft.Revision))

	fb, err := g.doRequest(ctx, sub)
	if err != nil {
		g.logger.Error("approval failed",
			slog.String("run_id", sub.RunID),
			slog.Int("revision", sub.Draft.Revision),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}

	g.logger.Info("approval received",
		slog.String("run_id", sub.RunID),
		slog.Int("revision", sub.Draft.Revision),
		slog.String("decision", string(fb.Decision)),
		slog.Duration("duration", time.Since(start)))
	return fb, nil
}

func (g *WebhookGate) doRequest(ctx context.Context, sub Submission) (*domain.Feedback, error) {
	body, err := json.Marshal(webhookRequest{
		SenderName:  sub.Sender.Name,
		SenderEmail: sub.Sender.Email,
		Subject:     sub.Sender.Subject,
		ThreadText:  sub.Draft.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal approval request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.ErrTransport("create approval request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range g.headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, g.transportError(ctx, "approval request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, g.transportError(ctx, "read approval response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.ErrStatus(resp.StatusCode, respBody)
	}

	return g.parse(respBody)
}

// transportError distinguishes our own deadline from other failures.
func (g *WebhookGate) transportError(ctx context.Context, msg string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout(fmt.Sprintf("no approval decision within %s", g.timeout), err)
	}
	return domain.ErrTransport(msg, err)
}

func (g *WebhookGate) parse(body []byte) (*domain.Feedback, error) {
	var out webhookResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, domain.ErrMalformedResponse("approval response is not valid JSON", body).WithCause(err)
	}
	if out.SelectedOption == nil {
		return nil, domain.ErrMalformedResponse("approval response has no selected-option", body)
	}

	option := *out.SelectedOption
	if strings.EqualFold(strings.TrimSpace(option), g.approveOption) {
		fb := &domain.Feedback{Decision: domain.DecisionApprove, Option: option}
		if out.Comment != nil {
			fb.Comment = *out.Comment
		}
		return fb, nil
	}

	if out.Comment == nil || strings.TrimSpace(*out.Comment) == "" {
		return nil, domain.ErrMalformedResponse("rejection carries no comment", body)
	}

	return &domain.Feedback{
		Decision: domain.DecisionReject,
		Comment:  *out.Comment,
		Option:   option,
	}, nil
}

// Ensure WebhookGate implements the interface.
var _ Gate = (*WebhookGate)(nil)
