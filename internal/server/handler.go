package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tjfontaine/replyloop/internal/domain"
	"github.com/tjfontaine/replyloop/internal/workflow"
)

// maxRequestBytes bounds the size of a submitted thread.
const maxRequestBytes = 1 << 20

// Runner executes one reply run.
type Runner interface {
	Execute(ctx context.Context, req workflow.Request) (*workflow.Run, error)
}

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Thread      string `json:"thread"`
	SenderName  string `json:"sender_name,omitempty"`
	SenderEmail string `json:"sender_email,omitempty"`
	Subject     string `json:"subject,omitempty"`
}

// RunResponse is returned for a finished run.
type RunResponse struct {
	RunID     string         `json:"run_id"`
	State     workflow.State `json:"state"`
	Revisions int            `json:"revisions"`
	Email     string         `json:"email"`
}

// ErrorResponse is returned for failed requests and runs.
type ErrorResponse struct {
	Error    ErrorDetail    `json:"error"`
	RunID    string         `json:"run_id,omitempty"`
	State    workflow.State `json:"state,omitempty"`
	Revision *int           `json:"revision,omitempty"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type runHandler struct {
	runner Runner
}

func (h *runHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		AddError(ctx, err)
		writeError(w, http.StatusBadRequest, string(domain.ErrorTypeInvalidInput), "invalid request body: "+err.Error())
		return
	}

	run, err := h.runner.Execute(ctx, workflow.Request{
		Thread: domain.Thread{Text: req.Thread},
		Sender: domain.Sender{
			Name:    req.SenderName,
			Email:   req.SenderEmail,
			Subject: req.Subject,
		},
	})
	if err != nil {
		AddError(ctx, err)
		h.writeRunError(w, err)
		return
	}

	AddLogField(ctx, "run_id", run.ID)
	writeJSON(w, http.StatusOK, RunResponse{
		RunID:     run.ID,
		State:     run.State,
		Revisions: run.Revision,
		Email:     run.Email(),
	})
}

func (h *runHandler) writeRunError(w http.ResponseWriter, err error) {
	errType := domain.ErrorTypeOf(err)
	resp := ErrorResponse{
		Error: ErrorDetail{Type: string(errType), Message: err.Error()},
	}

	var runErr *workflow.RunError
	if errors.As(err, &runErr) {
		resp.RunID = runErr.RunID
		resp.State = runErr.State
		rev := runErr.Revision
		resp.Revision = &rev
	}

	status := statusFor(errType)
	if errType == "" {
		resp.Error.Type = "internal"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			resp.Error.Type = "canceled"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// statusFor maps a pipeline failure to the status returned to the caller.
func statusFor(t domain.ErrorType) int {
	switch t {
	case domain.ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case domain.ErrorTypeRevisionLimit:
		return http.StatusUnprocessableEntity
	case domain.ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrorTypeTransport, domain.ErrorTypeStatus,
		domain.ErrorTypeMalformedResponse, domain.ErrorTypeModel:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Type: errType, Message: msg}})
}
