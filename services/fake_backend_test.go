package services

import (
	"context"
	"sync"

	"ragwizard/models"
)

// fakeBackend records calls and answers from scripted values
type fakeBackend struct {
	mu sync.Mutex

	prompt      string
	generateErr error
	createErr   error
	getErr      error
	updateErr   error
	uploadErr   error
	queryErr    error
	listErr     error
	deleteErr   error

	answer   string
	chatbots []models.Chatbot
	chatbot  *models.Chatbot

	// statusFn answers the n-th (1-based) status call
	statusFn func(call int) (*models.StatusResponse, error)

	generateCalls int
	createCalls   int
	uploadCalls   int
	statusCalls   int
	queries       []fakeQuery
	updates       []models.UpdateChatbotRequest
	uploaded      []models.SelectedFile
	deleted       []string
}

type fakeQuery struct {
	ChatbotID string
	Question  string
	History   []models.ChatMessage
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		prompt: "You are a helpful assistant.",
		answer: "42",
		statusFn: func(int) (*models.StatusResponse, error) {
			return &models.StatusResponse{ChatbotStatus: models.ChatbotReady, TotalDocuments: 1}, nil
		},
	}
}

func statusSequence(statuses ...models.ChatbotStatus) func(int) (*models.StatusResponse, error) {
	return func(call int) (*models.StatusResponse, error) {
		i := call - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		return &models.StatusResponse{ChatbotStatus: statuses[i], TotalDocuments: call}, nil
	}
}

func (f *fakeBackend) GenerateSystemPrompt(ctx context.Context, specialInstructions string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateCalls++
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.prompt, nil
}

func (f *fakeBackend) CreateChatbot(ctx context.Context, name, systemPrompt string) (*models.Chatbot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Chatbot{ID: "bot-1", Name: name, SystemPrompt: systemPrompt, Status: models.ChatbotCreating}, nil
}

func (f *fakeBackend) GetChatbot(ctx context.Context, chatbotID string) (*models.Chatbot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.chatbot != nil {
		c := *f.chatbot
		return &c, nil
	}
	return &models.Chatbot{ID: chatbotID, SystemPrompt: "remote prompt", Model: "gpt-4"}, nil
}

func (f *fakeBackend) UpdateChatbot(ctx context.Context, chatbotID, systemPrompt, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, models.UpdateChatbotRequest{SystemPrompt: systemPrompt, Model: model})
	return f.updateErr
}

func (f *fakeBackend) UploadDocuments(ctx context.Context, chatbotID string, files []models.SelectedFile) (models.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, files...)
	return models.Metadata{"files": len(files)}, nil
}

func (f *fakeBackend) GetStatus(ctx context.Context, chatbotID string) (*models.StatusResponse, error) {
	f.mu.Lock()
	f.statusCalls++
	call := f.statusCalls
	fn := f.statusFn
	f.mu.Unlock()
	return fn(call)
}

func (f *fakeBackend) Query(ctx context.Context, chatbotID, question string, history []models.ChatMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, fakeQuery{
		ChatbotID: chatbotID,
		Question:  question,
		History:   append([]models.ChatMessage(nil), history...),
	})
	if f.queryErr != nil {
		return "", f.queryErr
	}
	return f.answer, nil
}

func (f *fakeBackend) ListChatbots(ctx context.Context) ([]models.Chatbot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Chatbot(nil), f.chatbots...), nil
}

func (f *fakeBackend) DeleteChatbot(ctx context.Context, chatbotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, chatbotID)
	return nil
}

func (f *fakeBackend) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}
