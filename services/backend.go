package services

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/pkg/errors"

	"ragwizard/models"
	"ragwizard/utils"
)

// Backend is the REST surface of the chatbot service the wizard drives
type Backend interface {
	GenerateSystemPrompt(ctx context.Context, specialInstructions string) (string, error)
	CreateChatbot(ctx context.Context, name, systemPrompt string) (*models.Chatbot, error)
	GetChatbot(ctx context.Context, chatbotID string) (*models.Chatbot, error)
	UpdateChatbot(ctx context.Context, chatbotID, systemPrompt, model string) error
	UploadDocuments(ctx context.Context, chatbotID string, files []models.SelectedFile) (models.Metadata, error)
	GetStatus(ctx context.Context, chatbotID string) (*models.StatusResponse, error)
	Query(ctx context.Context, chatbotID, question string, history []models.ChatMessage) (string, error)
	ListChatbots(ctx context.Context) ([]models.Chatbot, error)
	DeleteChatbot(ctx context.Context, chatbotID string) error
}

// BackendClient talks to the chatbot backend over HTTP
type BackendClient struct {
	baseURL    string
	httpClient *http.Client
	logger     utils.Logger
}

// NewBackendClient creates a client for the backend at baseURL
func NewBackendClient(baseURL string, timeout time.Duration, logger utils.Logger) *BackendClient {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second // uploads of ten 50MB files
	}

	return &BackendClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// BaseURL returns the backend root the client was built with
func (b *BackendClient) BaseURL() string {
	return b.baseURL
}

// GenerateSystemPrompt asks the backend to write a system prompt
func (b *BackendClient) GenerateSystemPrompt(ctx context.Context, specialInstructions string) (string, error) {
	var resp models.GeneratePromptResponse
	req := models.GeneratePromptRequest{SpecialInstructions: specialInstructions}
	if err := b.doJSON(ctx, "generate system prompt", http.MethodPost, "/api/generate-system-prompt", req, &resp); err != nil {
		return "", err
	}
	return resp.SystemPrompt, nil
}

// CreateChatbot creates the remote chatbot record
func (b *BackendClient) CreateChatbot(ctx context.Context, name, systemPrompt string) (*models.Chatbot, error) {
	var chatbot models.Chatbot
	req := models.CreateChatbotRequest{Name: name, SystemPrompt: systemPrompt}
	if err := b.doJSON(ctx, "create chatbot", http.MethodPost, "/api/chatbot", req, &chatbot); err != nil {
		return nil, err
	}
	if chatbot.ID == "" {
		return nil, errors.New("create chatbot: backend response has no id")
	}
	return &chatbot, nil
}

// GetChatbot loads a chatbot record
func (b *BackendClient) GetChatbot(ctx context.Context, chatbotID string) (*models.Chatbot, error) {
	var resp models.GetChatbotResponse
	if err := b.doJSON(ctx, "get chatbot", http.MethodGet, chatbotPath(chatbotID, ""), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Chatbot == nil {
		return nil, errors.Errorf("get chatbot: no chatbot in response for %s", chatbotID)
	}
	return resp.Chatbot, nil
}

// UpdateChatbot saves the system prompt and model
func (b *BackendClient) UpdateChatbot(ctx context.Context, chatbotID, systemPrompt, model string) error {
	req := models.UpdateChatbotRequest{SystemPrompt: systemPrompt, Model: model}
	return b.doJSON(ctx, "update chatbot", http.MethodPut, chatbotPath(chatbotID, ""), req, nil)
}

// UploadDocuments streams the files as multipart form data under the "files" field
func (b *BackendClient) UploadDocuments(ctx context.Context, chatbotID string, files []models.SelectedFile) (models.Metadata, error) {
	const op = "upload documents"

	for _, file := range files {
		if _, err := os.Stat(file.Path); err != nil {
			return nil, errors.Wrapf(err, "cannot read %s", file.Name)
		}
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipartFiles(writer, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+chatbotPath(chatbotID, "/documents"), pr)
	if err != nil {
		pr.Close()
		return nil, errors.Wrap(err, "failed to create upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	start := time.Now()
	var result models.Metadata
	err = b.do(op, req, &result)
	b.logger.Info("Backend", "Documents uploaded", map[string]interface{}{
		"chatbot_id": chatbotID,
		"files":      len(files),
		"duration":   time.Since(start).String(),
		"ok":         err == nil,
	})
	return result, err
}

func writeMultipartFiles(writer *multipart.Writer, files []models.SelectedFile) error {
	for _, file := range files {
		if err := copyFormFile(writer, file); err != nil {
			return err
		}
	}
	return writer.Close()
}

func copyFormFile(writer *multipart.Writer, file models.SelectedFile) error {
	src, err := os.Open(file.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", file.Name)
	}
	defer src.Close()

	part, err := writer.CreateFormFile("files", file.Name)
	if err != nil {
		return errors.Wrapf(err, "failed to add %s to form", file.Name)
	}
	if _, err := io.Copy(part, src); err != nil {
		return errors.Wrapf(err, "failed to read %s", file.Name)
	}
	return nil
}

// GetStatus reads the document processing status
func (b *BackendClient) GetStatus(ctx context.Context, chatbotID string) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := b.doJSON(ctx, "get status", http.MethodGet, chatbotPath(chatbotID, "/status"), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Query asks the chatbot a question with the prior conversation
func (b *BackendClient) Query(ctx context.Context, chatbotID, question string, history []models.ChatMessage) (string, error) {
	if history == nil {
		history = []models.ChatMessage{}
	}

	var resp models.QueryResponse
	req := models.QueryRequest{Question: question, ChatHistory: history}
	if err := b.doJSON(ctx, "query chatbot", http.MethodPost, chatbotPath(chatbotID, "/query"), req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// ListChatbots returns every chatbot known to the backend
func (b *BackendClient) ListChatbots(ctx context.Context) ([]models.Chatbot, error) {
	var resp models.ListChatbotsResponse
	if err := b.doJSON(ctx, "list chatbots", http.MethodGet, "/api/chatbots", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Chatbots, nil
}

// DeleteChatbot removes a chatbot and its documents
func (b *BackendClient) DeleteChatbot(ctx context.Context, chatbotID string) error {
	return b.doJSON(ctx, "delete chatbot", http.MethodDelete, chatbotPath(chatbotID, ""), nil, nil)
}

func chatbotPath(chatbotID, suffix string) string {
	return "/api/chatbot/" + url.PathEscape(chatbotID) + suffix
}

// doJSON sends body (if any) as JSON and decodes a 2xx answer into out
func (b *BackendClient) doJSON(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s request", op)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s request", op)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return b.do(op, req, out)
}

func (b *BackendClient) do(op string, req *http.Request, out interface{}) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Warn("Backend", "Request failed", map[string]interface{}{
			"op":    op,
			"path":  req.URL.Path,
			"error": err.Error(),
		})
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	b.logger.Debug("Backend", "Response received", map[string]interface{}{
		"op":     op,
		"method": req.Method,
		"path":   req.URL.Path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope models.ErrorResponse
		_ = json.Unmarshal(data, &envelope)
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Message: envelope.Error.Message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", op)
	}
	return nil
}
