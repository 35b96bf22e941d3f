package testutil

import (
	"net/http"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// Interaction is one canned HTTP exchange replayed by the recorder.
type Interaction struct {
	Method       string
	URL          string
	Status       int
	ResponseBody string
	Headers      http.Header
}

// NewReplayRecorder writes the interactions to a cassette in a temp dir and
// returns a recorder replaying them in order. Requests are matched on method
// and URL only, and each interaction is served once.
func NewReplayRecorder(t *testing.T, cassetteName string, interactions ...Interaction) (*recorder.Recorder, func()) {
	t.Helper()

	cassettePath := filepath.Join(t.TempDir(), "fixtures", cassetteName)

	c := cassette.New(cassettePath)
	for _, in := range interactions {
		headers := in.Headers
		if headers == nil {
			headers = http.Header{"Content-Type": []string{"application/json"}}
		}
		c.AddInteraction(&cassette.Interaction{
			Request: cassette.Request{
				Method: in.Method,
				URL:    in.URL,
			},
			Response: cassette.Response{
				Body:    in.ResponseBody,
				Headers: headers,
				Status:  http.StatusText(in.Status),
				Code:    in.Status,
			},
		})
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Failed to save cassette: %v", err)
	}

	r, err := recorder.NewAsMode(cassettePath, recorder.ModeReplaying, nil)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	// Don't match on request body for simplicity
	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		return r.Method == i.Method && r.URL.String() == i.URL
	})

	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}
