package approval

import (
	"context"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// SampleDraft is the body posted by Probe.
const SampleDraft = "Dear customer,\n\nThank you for your order. This is a test message " +
	"sent to verify the approval webhook.\n"

// Probe sends one sample submission through gate and returns the decision.
// It is used to check webhook wiring before running real threads.
func Probe(ctx context.Context, gate Gate, sender domain.Sender) (*domain.Feedback, error) {
	return gate.Review(ctx, Submission{
		RunID:  "probe",
		Sender: sender,
		Draft:  domain.Draft{Body: SampleDraft},
	})
}
