// ABOUTME: Chat message and reply models for the site assistant
// ABOUTME: Roles follow the usual user/assistant/system convention
package models

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the visitor conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatReply is the generated answer plus what retrieval contributed
type ChatReply struct {
	Content     string `json:"reply"`
	ContextUsed bool   `json:"context_used"`
}

// LastUserMessage returns the content of the most recent user turn
func LastUserMessage(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
