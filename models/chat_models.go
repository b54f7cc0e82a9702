package models

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in conversation history
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// QueryRequest is sent to POST /api/chatbot/{id}/query
type QueryRequest struct {
	Question    string        `json:"question"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

// QueryResponse is the backend answer to a query
type QueryResponse struct {
	Response string `json:"response"`
}
