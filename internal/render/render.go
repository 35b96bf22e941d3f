// Package render prints the approved reply.
package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"golang.org/x/term"
)

// Format selects how the reply is printed.
type Format string

const (
	FormatText   Format = "text"
	FormatHTML   Format = "html"
	FormatPretty Format = "pretty"
)

const defaultWidth = 80

// ParseFormat validates a --format value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatHTML, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, html or pretty)", s)
	}
}

// Write renders email to w. Pretty output needs a terminal; on anything else
// it falls back to plain text so pipes stay clean.
func Write(w io.Writer, email string, format Format) error {
	var out string
	var err error

	switch format {
	case FormatHTML:
		out, err = HTML(email)
	case FormatPretty:
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			out, err = Pretty(email, terminalWidth(f))
			break
		}
		out = Text(email)
	default:
		out = Text(email)
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, out)
	return err
}

// Text returns the body unchanged apart from a trailing newline.
func Text(email string) string {
	if strings.HasSuffix(email, "\n") {
		return email
	}
	return email + "\n"
}

// HTML converts the body, treated as Markdown, to an HTML fragment.
func HTML(email string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(email), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// Pretty renders the body as styled Markdown for a terminal of the given
// width. Colors are dropped when the environment asks for plain output.
func Pretty(email string, width int) (string, error) {
	style := glamour.WithAutoStyle()
	if termenv.EnvColorProfile() == termenv.Ascii {
		style = glamour.WithStandardStyle("notty")
	}

	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("render pretty: %w", err)
	}
	return r.Render(email)
}

func terminalWidth(f *os.File) int {
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}
