// Package approval routes drafts to a human approver and turns the reply into
// a Feedback decision.
package approval

import (
	"context"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// DefaultApproveOption is the selected-option value that approves a draft.
const DefaultApproveOption = "Approve"

// Submission is one draft sent for review along with the run metadata the
// approver sees.
type Submission struct {
	RunID  string
	Sender domain.Sender
	Draft  domain.Draft
}

// Gate performs exactly one review round trip per call.
type Gate interface {
	Review(ctx context.Context, sub Submission) (*domain.Feedback, error)
}
