// Package domain holds the transient entities of a reply run: the inbound
// thread, the generated summary and drafts, and the approver's feedback.
package domain

import "strings"

// Thread is the raw customer email thread. It is never modified.
type Thread struct {
	Text string `json:"text"`
}

// IsEmpty reports whether the thread carries no usable text.
func (t Thread) IsEmpty() bool {
	return strings.TrimSpace(t.Text) == ""
}

// Summary is the model's digest of a thread.
type Summary struct {
	Text string `json:"text"`
}

// Draft is a candidate reply body. A new draft always replaces the previous
// one wholesale; Revision is 0 for the initial draft and increments with
// every refinement.
type Draft struct {
	Body     string `json:"body"`
	Revision int    `json:"revision"`
}

// Decision is the approver's verdict on a draft.
type Decision string

const (
	// DecisionApprove ends the review loop.
	DecisionApprove Decision = "approve"
	// DecisionReject sends the draft back for refinement.
	DecisionReject Decision = "reject"
)

// Feedback is the parsed result of one approval round trip.
type Feedback struct {
	Decision Decision `json:"decision"`
	// Comment is the approver's revision request. Empty when approved.
	Comment string `json:"comment,omitempty"`
	// Option is the raw selected-option value returned by the approver.
	Option string `json:"option,omitempty"`
}

// Approved reports whether the feedback ends the loop.
func (f *Feedback) Approved() bool {
	return f != nil && f.Decision == DecisionApprove
}

// Sender describes the customer the reply is addressed to. It is forwarded
// to the approver as context alongside the draft.
type Sender struct {
	Name    string `json:"sender_name"`
	Email   string `json:"sender_email"`
	Subject string `json:"subject"`
}

// WithDefaults fills empty fields from def.
func (s Sender) WithDefaults(def Sender) Sender {
	if s.Name == "" {
		s.Name = def.Name
	}
	if s.Email == "" {
		s.Email = def.Email
	}
	if s.Subject == "" {
		s.Subject = def.Subject
	}
	return s
}
