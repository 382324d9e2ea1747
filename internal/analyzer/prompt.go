package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

const systemPrompt = "You are a helpful assistant."

// DefaultStanceDefinitions describes the reply-chain categories when no
// topic-specific framing is configured.
const DefaultStanceDefinitions = `- Reinforce: The reply agrees with the root post and repeats or strengthens its central claim.

- Challenge: The reply disputes the root post's central claim or defends the party it criticises.

- Shift: The reply introduces a new perspective or topic that is not directly related to the root post's claim, such as broader commentary or an unrelated issue.`

// BuildClassificationPrompt asks for the narrative elements of one text as
// JSON matching schema.
func BuildClassificationPrompt(text string, schema map[string]any) string {
	var sb strings.Builder

	sb.WriteString("You are a political discourse analyst.\n\n")
	sb.WriteString("Classify the following social media post based on:\n\n")
	sb.WriteString("1. Narrative Frame (e.g., corruption, persecution, legal justice, media bias, systemic inequality, etc.)\n")
	sb.WriteString("2. Main Subject (the person, group or institution the post is about)\n")
	sb.WriteString("3. Stance toward main subject (e.g., supportive, critical, neutral, unclear)\n")
	sb.WriteString("4. Topic Focus (e.g., legal, cultural, institutional, personal attack)\n\n")

	sb.WriteString("IMPORTANT: Respond with ONLY a valid JSON object. No markdown, no explanation.\n")
	if schema != nil {
		if b, err := json.Marshal(schema); err == nil {
			sb.WriteString("The object must match this JSON schema:\n")
			sb.Write(b)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nPost:\n")
	sb.WriteString(text)
	sb.WriteString("\n")

	return sb.String()
}

// BuildReplyChainPrompt asks which stance category the replies take toward
// the root post.
func BuildReplyChainPrompt(root string, replies []string, definitions string) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing an online conversation.\n\n")
	sb.WriteString("Root Post:\n")
	sb.WriteString(root)
	sb.WriteString("\n\nReplies:\n")
	for i, r := range replies {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r))
	}

	sb.WriteString("\nInstructions:\n")
	sb.WriteString("Identify whether replies reinforce, challenge, or shift the narrative of the root post.\n\n")
	sb.WriteString(definitions)
	sb.WriteString("\n\nONLY output one category from: [\"reinforce\", \"challenge\", \"shift\"].\n")

	return sb.String()
}
