package agent

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/replyloop/internal/domain"
)

const (
	summarizerInstruction = "You are an expert email analyst. Analyze email threads and provide concise, " +
		"actionable summaries focusing on customer orders, issues, and key details."

	drafterInstruction = "You are a professional email writer. Generate courteous, clear email responses " +
		"for out-of-stock situations. Always include apologies, explanations, and next steps."

	refinerInstruction = "You are an email quality specialist. Refine and improve email drafts based on " +
		"human feedback while maintaining professionalism and clarity."
)

func summarizePrompt(thread domain.Thread, focus string) string {
	var sb strings.Builder
	sb.WriteString("You are a customer service expert responding to a customer inquiry. You have access to:\n\n")
	sb.WriteString("CUSTOMER EMAIL THREAD:\n")
	sb.WriteString(thread.Text)
	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("1. Analyze the email thread to understand:\n")
	sb.WriteString("- What product the customer is asking about\n")
	sb.WriteString("- Customer's name and preferred communication style\n")
	sb.WriteString("- Their language preference (English/French/other)\n")
	sb.WriteString("- Level of urgency and emotional tone\n")
	sb.WriteString("- Any specific concerns or requirements\n")
	if focus != "" {
		fmt.Fprintf(&sb, "\nFocus on: %s\n", focus)
	}
	return sb.String()
}

func draftPrompt(thread domain.Thread, summary domain.Summary) string {
	var sb strings.Builder
	sb.WriteString("CUSTOMER SERVICE CONTEXT:\n")
	sb.WriteString("You are a customer service expert responding to a customer inquiry. You have access to:\n\n")
	sb.WriteString("CUSTOMER EMAIL THREAD:\n")
	sb.WriteString(thread.Text)
	sb.WriteString("\n\nSUMMARY OF CUSTOMER INQUIRY:\n")
	sb.WriteString(summary.Text)
	sb.WriteString("\n\nINSTRUCTIONS:\n\n")
	sb.WriteString("1. Generate a professional customer service response that:\n")
	sb.WriteString("- Matches their communication language and style\n")
	sb.WriteString("- Addresses their specific situation with empathy\n")
	sb.WriteString("- Provides clear information about stock status\n")
	sb.WriteString("- Offers helpful alternatives if needed\n")
	sb.WriteString("- Includes concrete next steps\n")
	sb.WriteString("- Maintains the company's brand voice\n\n")
	sb.WriteString("2. Write only the email body (no subject line or signatures)\n\n")
	sb.WriteString("Generate your response now:\n")
	return sb.String()
}

func refinePrompt(draft domain.Draft, comment string) string {
	return fmt.Sprintf("Please modify this email: %s based on this feedback: %s. "+
		"Keep it professional and address all the feedback points.", draft.Body, comment)
}
