package llm

// Chat roles understood by OpenAI-compatible servers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params carries optional per-call generation settings. Nil fields are left to the server.
type Params struct {
	Temperature *float32
	MaxTokens   *int
}

// Model represents a model advertised by the server's /models endpoint.
type Model struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// System and User are shorthands for building prompts.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

func User(content string) Message { return Message{Role: RoleUser, Content: content} }
