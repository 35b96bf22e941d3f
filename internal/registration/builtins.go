package registration

import (
	"github.com/tjfontaine/replyloop/internal/backend/anthropic"
	"github.com/tjfontaine/replyloop/internal/backend/echo"
	"github.com/tjfontaine/replyloop/internal/backend/openai"
)

// RegisterBuiltins registers the built-in completion backends explicitly.
// This replaces init-based side effects and is intended to be called from
// cmd/replyloop and tests before building a backend from configuration.
// Safe to call more than once.
func RegisterBuiltins() {
	openai.RegisterFactory()
	anthropic.RegisterFactory()
	echo.RegisterFactory()
}
