package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/tjfontaine/replyloop/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateTriggered, StateSummarized, true},
		{StateSummarized, StateDrafted, true},
		{StateDrafted, StateAwaitingApproval, true},
		{StateAwaitingApproval, StateApproved, true},
		{StateAwaitingApproval, StateRevising, true},
		{StateRevising, StateAwaitingApproval, true},
		{StateApproved, StateDone, true},
		{StateTriggered, StateFailed, true},
		{StateRevising, StateFailed, true},
		{StateTriggered, StateDrafted, false},
		{StateDrafted, StateApproved, false},
		{StateRevising, StateApproved, false},
		{StateDone, StateFailed, false},
		{StateFailed, StateTriggered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRun_MoveTo(t *testing.T) {
	r := newRun()
	if r.State != StateTriggered {
		t.Fatalf("new run state = %s", r.State)
	}

	if _, err := r.moveTo(StateDrafted); err == nil {
		t.Error("expected illegal transition error")
	}
	if len(r.History) != 0 {
		t.Error("illegal transition was recorded")
	}

	if _, err := r.moveTo(StateFailed); err != nil {
		t.Fatalf("moveTo(FAILED) error = %v", err)
	}
	if r.EndedAt.IsZero() {
		t.Error("terminal state did not set EndedAt")
	}
}

func TestRun_EmailOnlyWhenDone(t *testing.T) {
	r := newRun()
	r.Draft = domain.Draft{Body: "D1"}
	if r.Email() != "" {
		t.Error("Email() returned a draft before the run finished")
	}
	r.State = StateDone
	if r.Email() != "D1" {
		t.Errorf("Email() = %q", r.Email())
	}
}

func TestRunError(t *testing.T) {
	cause := domain.ErrRevisionLimit(3)
	err := &RunError{RunID: "abc", State: StateAwaitingApproval, Revision: 3, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("RunError does not unwrap")
	}
	msg := err.Error()
	for _, part := range []string{"abc", "AWAITING_APPROVAL", "revision 3", "revision_limit"} {
		if !strings.Contains(msg, part) {
			t.Errorf("message %q missing %q", msg, part)
		}
	}
}
