package agent

import "github.com/tjfontaine/replyloop/internal/backend"

// summarySchema mirrors EmailSummary{summary, key_points}.
var summarySchema = &backend.Schema{
	Name:        "email_summary",
	Description: "Summary of a customer email thread",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"key_points": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"summary", "key_points"},
		"additionalProperties": false,
	},
}

// responseSchema mirrors EmailResponse{subject, body}.
var responseSchema = &backend.Schema{
	Name:        "email_response",
	Description: "Reply email to a customer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string"},
		},
		"required":             []string{"subject", "body"},
		"additionalProperties": false,
	},
}
