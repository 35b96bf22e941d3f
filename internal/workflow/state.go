package workflow

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// State is a step of the reply state machine.
type State string

const (
	StateTriggered        State = "TRIGGERED"
	StateSummarized       State = "SUMMARIZED"
	StateDrafted          State = "DRAFTED"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateRevising         State = "REVISING"
	StateApproved         State = "APPROVED"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// allowed lists the legal successors of each state. FAILED is reachable from
// every non-terminal state and is not listed.
var allowed = map[State][]State{
	StateTriggered:        {StateSummarized},
	StateSummarized:       {StateDrafted},
	StateDrafted:          {StateAwaitingApproval},
	StateAwaitingApproval: {StateApproved, StateRevising},
	StateRevising:         {StateAwaitingApproval},
	StateApproved:         {StateDone},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition records one state change of a run.
type Transition struct {
	From     State     `json:"from"`
	To       State     `json:"to"`
	Revision int       `json:"revision"`
	At       time.Time `json:"at"`
}

// Run is the in-memory record of one pass through the pipeline. Exactly one
// draft is live at a time; each refinement replaces it.
type Run struct {
	ID        string       `json:"id"`
	State     State        `json:"state"`
	Revision  int          `json:"revision"`
	Summary   string       `json:"summary,omitempty"`
	Draft     domain.Draft `json:"draft"`
	History   []Transition `json:"history"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at,omitempty"`
}

func newRun() *Run {
	now := time.Now()
	return &Run{
		ID:        uuid.New().String(),
		State:     StateTriggered,
		StartedAt: now,
	}
}

// Email returns the approved reply body. It is empty unless the run is DONE.
func (r *Run) Email() string {
	if r.State != StateDone {
		return ""
	}
	return r.Draft.Body
}

func (r *Run) moveTo(to State) (Transition, error) {
	if !CanTransition(r.State, to) {
		return Transition{}, fmt.Errorf("illegal transition %s -> %s", r.State, to)
	}
	t := Transition{From: r.State, To: to, Revision: r.Revision, At: time.Now()}
	r.History = append(r.History, t)
	r.State = to
	if to.Terminal() {
		r.EndedAt = t.At
	}
	return t, nil
}

// RunError reports where a failed run stopped.
type RunError struct {
	RunID    string
	State    State
	Revision int
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed in %s (revision %d): %v", e.RunID, e.State, e.Revision, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
