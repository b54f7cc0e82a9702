package controllers

import (
	"ragwizard/models"
	"ragwizard/services"
)

// FileView is one entry of the selected-files list
type FileView struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
}

// SessionView is the wizard session as rendered to the page and to API clients
type SessionView struct {
	ID                  string               `json:"id"`
	Step                int                  `json:"step"`
	StepTitle           string               `json:"step_title"`
	Progress            int                  `json:"progress"`
	ChatbotID           string               `json:"chatbot_id,omitempty"`
	ChatbotName         string               `json:"chatbot_name"`
	SystemPrompt        string               `json:"system_prompt"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	Model               string               `json:"model,omitempty"`
	Files               []FileView           `json:"files"`
	History             []models.ChatMessage `json:"history"`
	Status              string               `json:"status,omitempty"`
	StatusLabel         string               `json:"status_label"`
	DocumentCount       int                  `json:"document_count"`
	Polling             bool                 `json:"polling"`
	PollAttempts        int                  `json:"poll_attempts"`
	Pending             string               `json:"pending,omitempty"`
	Errors              map[string]string    `json:"errors"`
	Notice              string               `json:"notice,omitempty"`
	CanChat             bool                 `json:"can_chat"`
}

// WizardResponse is the JSON reply to every wizard action
type WizardResponse struct {
	Status  string      `json:"status"`
	Session SessionView `json:"session"`
	Error   string      `json:"error,omitempty"`
}

// WizardPage is the data behind wizard.html
type WizardPage struct {
	Session SessionView
}

// DashboardPage is the data behind dashboard.html
type DashboardPage struct {
	List  services.ChatbotList
	Error string
}

func newSessionView(s models.WizardSession) SessionView {
	view := SessionView{
		ID:                  s.ID,
		Step:                int(s.CurrentStep),
		StepTitle:           s.CurrentStep.Title(),
		Progress:            int(s.CurrentStep) * 25,
		ChatbotID:           s.ChatbotID,
		ChatbotName:         s.ChatbotName,
		SystemPrompt:        s.SystemPrompt,
		SpecialInstructions: s.SpecialInstructions,
		Model:               s.Model,
		Files:               make([]FileView, 0, len(s.SelectedFiles)),
		History:             append([]models.ChatMessage{}, s.TestHistory...),
		Status:              string(s.ChatbotStatus),
		StatusLabel:         s.ChatbotStatus.Label(),
		DocumentCount:       s.DocumentCount,
		Polling:             s.Polling,
		PollAttempts:        s.PollAttempts,
		Pending:             s.Pending,
		Errors:              make(map[string]string, len(s.Errors)),
		Notice:              s.Notice,
		CanChat:             s.CanChat(),
	}

	for i, f := range s.SelectedFiles {
		view.Files = append(view.Files, FileView{
			Index:     i,
			Name:      f.Name,
			Size:      f.Size,
			SizeLabel: services.FormatFileSize(f.Size),
		})
	}
	for slot := range s.Errors {
		if text := s.ErrorText(slot); text != "" {
			view.Errors[string(slot)] = text
		}
	}
	return view
}
