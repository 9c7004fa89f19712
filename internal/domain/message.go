package domain

// Message roles on the chat completion wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation. The system/grounding message
// is synthesized fresh per request and never stored in history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMode selects the instruction template appended to the base
// grounding prompt.
type ChatMode string

const (
	ModeSourcesOnly ChatMode = "sources-only"
	ModeBalanced    ChatMode = "balanced"
	ModeCreative    ChatMode = "creative"
	ModeTribunal    ChatMode = "tribunal"
)

// ParseChatMode maps a request-supplied mode string to a known mode,
// falling back to balanced for anything unrecognized.
func ParseChatMode(s string) ChatMode {
	switch ChatMode(s) {
	case ModeSourcesOnly, ModeBalanced, ModeCreative, ModeTribunal:
		return ChatMode(s)
	default:
		return ModeBalanced
	}
}
