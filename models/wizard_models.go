package models

import (
	"strings"
	"time"
)

// WizardStep is the 1-based position in the creation wizard
type WizardStep int

const (
	StepInitialize WizardStep = 1
	StepDocuments  WizardStep = 2
	StepTest       WizardStep = 3
	StepComplete   WizardStep = 4
)

// Title returns the heading shown for the step
func (s WizardStep) Title() string {
	switch s {
	case StepInitialize:
		return "Basic Settings"
	case StepDocuments:
		return "Upload Documents"
	case StepTest:
		return "Test Your Chatbot"
	case StepComplete:
		return "Ready to Deploy"
	}
	return "Unknown"
}

// Valid reports whether s is one of the four wizard steps
func (s WizardStep) Valid() bool {
	return s >= StepInitialize && s <= StepComplete
}

// ErrorSlot names a field-scoped error area on a wizard step
type ErrorSlot string

const (
	SlotName         ErrorSlot = "name"
	SlotPrompt       ErrorSlot = "prompt"
	SlotInstructions ErrorSlot = "instructions"
	SlotFiles        ErrorSlot = "files"
	SlotQuery        ErrorSlot = "query"
	SlotConfig       ErrorSlot = "config"
	SlotDetails      ErrorSlot = "details"
)

// SelectedFile is a document picked for upload. Path points at readable local content.
type SelectedFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Path string `json:"path,omitempty"`
}

// WizardSession is the whole client-side state of one wizard run
type WizardSession struct {
	ID                  string        `json:"id"`
	CurrentStep         WizardStep    `json:"current_step"`
	ChatbotID           string        `json:"chatbot_id,omitempty"`
	ChatbotName         string        `json:"chatbot_name"`
	SystemPrompt        string        `json:"system_prompt"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`
	Model               string        `json:"model,omitempty"`
	SelectedFiles       []SelectedFile `json:"selected_files"`
	TestHistory         []ChatMessage `json:"test_history"`

	ChatbotStatus ChatbotStatus `json:"chatbot_status,omitempty"`
	DocumentCount int           `json:"document_count"`

	Polling        bool   `json:"polling"`
	PollGeneration int    `json:"poll_generation"`
	PollAttempts   int    `json:"poll_attempts"`
	Pending        string `json:"pending,omitempty"`

	Errors    map[ErrorSlot][]string `json:"errors,omitempty"`
	Notice    string                 `json:"notice,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// NewWizardSession returns an empty session positioned on step 1
func NewWizardSession(id string) WizardSession {
	return WizardSession{
		ID:          id,
		CurrentStep: StepInitialize,
		Errors:      make(map[ErrorSlot][]string),
	}
}

// HasChatbot reports whether the remote chatbot has been created
func (s WizardSession) HasChatbot() bool {
	return s.ChatbotID != ""
}

// CanChat reports whether the completion actions may be offered
func (s WizardSession) CanChat() bool {
	return s.HasChatbot() && s.ChatbotStatus == ChatbotReady
}

// Clone returns a deep copy so transitions never share slices or maps
func (s WizardSession) Clone() WizardSession {
	out := s
	out.SelectedFiles = append([]SelectedFile(nil), s.SelectedFiles...)
	out.TestHistory = append([]ChatMessage(nil), s.TestHistory...)
	out.Errors = make(map[ErrorSlot][]string, len(s.Errors))
	for slot, msgs := range s.Errors {
		out.Errors[slot] = append([]string(nil), msgs...)
	}
	return out
}

// SetError replaces the messages in a slot
func (s *WizardSession) SetError(slot ErrorSlot, message string) {
	if s.Errors == nil {
		s.Errors = make(map[ErrorSlot][]string)
	}
	s.Errors[slot] = []string{message}
}

// AddError appends a message to a slot
func (s *WizardSession) AddError(slot ErrorSlot, message string) {
	if s.Errors == nil {
		s.Errors = make(map[ErrorSlot][]string)
	}
	s.Errors[slot] = append(s.Errors[slot], message)
}

// ClearErrors empties only the given slots
func (s *WizardSession) ClearErrors(slots ...ErrorSlot) {
	for _, slot := range slots {
		delete(s.Errors, slot)
	}
}

// ErrorText joins the messages of a slot for display
func (s WizardSession) ErrorText(slot ErrorSlot) string {
	return strings.Join(s.Errors[slot], "\n")
}
