// Package providers holds the LLM backends used for narrative analysis.
package providers

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a provider
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// splitSystem separates system turns, joined by blank lines, from the
// conversation turns.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	var rest []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
