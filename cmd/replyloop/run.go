package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/replyloop/internal/domain"
	"github.com/tjfontaine/replyloop/internal/render"
	"github.com/tjfontaine/replyloop/internal/telemetry"
	"github.com/tjfontaine/replyloop/internal/workflow"
)

type runOptions struct {
	thread      string
	threadFile  string
	apiKey      string
	webhookURL  string
	format      string
	senderName  string
	senderEmail string
	subject     string
	progress    bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Draft a reply to one email thread and loop it through approval",
		Long: `Reads an email thread from --thread, --thread-file or standard input, then
summarizes it, drafts a reply and posts drafts to the approval webhook until
one is approved. The approved email is printed to standard output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, global, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.thread, "thread", "", "Email thread text")
	f.StringVar(&opts.threadFile, "thread-file", "", "Read the email thread from a file")
	f.StringVar(&opts.apiKey, "api-key", "", "Model API key (overrides llm.api_key)")
	f.StringVar(&opts.webhookURL, "webhook-url", "", "Approval webhook URL (overrides approval.url)")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text, html or pretty")
	f.StringVar(&opts.senderName, "sender-name", "", "Customer name shown to the approver")
	f.StringVar(&opts.senderEmail, "sender-email", "", "Customer email shown to the approver")
	f.StringVar(&opts.subject, "subject", "", "Subject shown to the approver")
	f.BoolVar(&opts.progress, "progress", false, "Print state transitions to stderr")
	cmd.MarkFlagsMutuallyExclusive("thread", "thread-file")

	return cmd
}

func runOnce(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := global.load()
	if err != nil {
		return err
	}
	if opts.apiKey != "" {
		cfg.LLM.APIKey = opts.apiKey
	}
	if opts.webhookURL != "" {
		cfg.Approval.URL = opts.webhookURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	thread, err := readThread(opts, cmd.InOrStdin())
	if err != nil {
		return err
	}

	shutdown, err := telemetry.InitTracer(telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Output:      cmd.ErrOrStderr(),
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", "error", err)
		}
	}()

	var hooks workflow.LifecycleHooks
	if opts.progress {
		stderr := cmd.ErrOrStderr()
		hooks.OnTransition = func(_ context.Context, e *workflow.TransitionEvent) {
			fmt.Fprintf(stderr, "-> %s (revision %d)\n", e.To, e.Revision)
		}
	}

	orch, err := buildPipeline(cfg, logger, nil, hooks)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := orch.Execute(ctx, workflow.Request{
		Thread: thread,
		Sender: domain.Sender{
			Name:    opts.senderName,
			Email:   opts.senderEmail,
			Subject: opts.subject,
		},
	})
	if err != nil {
		return err
	}

	return render.Write(cmd.OutOrStdout(), run.Email(), format)
}

// readThread takes the thread from the flag, the file, or stdin, in that order.
func readThread(opts *runOptions, stdin io.Reader) (domain.Thread, error) {
	switch {
	case opts.thread != "":
		return domain.Thread{Text: opts.thread}, nil
	case opts.threadFile != "":
		b, err := os.ReadFile(opts.threadFile)
		if err != nil {
			return domain.Thread{}, fmt.Errorf("read thread file: %w", err)
		}
		return domain.Thread{Text: string(b)}, nil
	}

	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return domain.Thread{}, errors.New("no thread given: use --thread, --thread-file or pipe it on stdin")
		}
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("read thread from stdin: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return domain.Thread{}, errors.New("no thread given: use --thread, --thread-file or pipe it on stdin")
	}
	return domain.Thread{Text: string(b)}, nil
}
