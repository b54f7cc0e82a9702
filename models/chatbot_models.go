package models

import "time"

// ChatbotStatus is the processing state reported by the backend
type ChatbotStatus string

const (
	ChatbotCreating   ChatbotStatus = "creating"
	ChatbotProcessing ChatbotStatus = "processing"
	ChatbotReady      ChatbotStatus = "ready"
	ChatbotError      ChatbotStatus = "error"
)

// Label returns the display label for a status, treating unknown values as ready
func (s ChatbotStatus) Label() string {
	switch s {
	case ChatbotCreating:
		return "Creating"
	case ChatbotProcessing:
		return "Processing"
	case ChatbotError:
		return "Error"
	default:
		return "Ready"
	}
}

// Chatbot mirrors the backend chatbot record. The wizard never treats it as authoritative.
type Chatbot struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	SystemPrompt  string        `json:"system_prompt"`
	Status        ChatbotStatus `json:"status"`
	DocumentCount int           `json:"document_count"`
	CreatedAt     string        `json:"created_at"`
	Model         string        `json:"model,omitempty"`
}

// CreatedDate formats created_at as "Jan 2, 2006", falling back to the raw value
func (c Chatbot) CreatedDate() string {
	t, err := time.Parse(time.RFC3339, c.CreatedAt)
	if err != nil {
		return c.CreatedAt
	}
	return t.Format("Jan 2, 2006")
}

// GeneratePromptRequest is sent to POST /api/generate-system-prompt
type GeneratePromptRequest struct {
	SpecialInstructions string `json:"special_instructions,omitempty"`
}

// GeneratePromptResponse carries the generated prompt
type GeneratePromptResponse struct {
	SystemPrompt string `json:"system_prompt"`
}

// CreateChatbotRequest is sent to POST /api/chatbot
type CreateChatbotRequest struct {
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
}

// UpdateChatbotRequest is sent to PUT /api/chatbot/{id}
type UpdateChatbotRequest struct {
	SystemPrompt string `json:"system_prompt"`
	Model        string `json:"model"`
}

// GetChatbotResponse wraps GET /api/chatbot/{id}
type GetChatbotResponse struct {
	Chatbot *Chatbot `json:"chatbot"`
}

// StatusResponse is returned by GET /api/chatbot/{id}/status
type StatusResponse struct {
	ChatbotStatus  ChatbotStatus `json:"chatbot_status"`
	TotalDocuments int           `json:"total_documents"`
}

// ListChatbotsResponse wraps GET /api/chatbots
type ListChatbotsResponse struct {
	Chatbots []Chatbot `json:"chatbots"`
}
