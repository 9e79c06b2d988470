package models

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	// RoleError marks a visible error bubble in the display transcript.
	// It never enters model history.
	RoleError Role = "error"
)

// ToolCall is a structured request from the model to invoke a named tool.
// Arguments is the raw JSON string exactly as returned by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one entry of model-facing conversation history.
// Assistant turns may carry tool calls; tool turns always reference the
// ToolCall.ID they answer and carry a result string, never absent.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// DisplayMessage is one bubble of the visible (volatile) transcript.
// Loading marks an assistant message still being produced by an in-flight
// turn.
type DisplayMessage struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Loading bool   `json:"loading,omitempty"`
}

// PersistedMessage is the durable representation of a transcript message.
// Its ID is assigned by the persistence service independently of display IDs,
// which is why reconciliation matches on (role, content) instead.
type PersistedMessage struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}
