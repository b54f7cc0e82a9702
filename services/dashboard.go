package services

import (
	"context"
	"strings"
	"sync"

	"ragwizard/models"
	"ragwizard/utils"
)

// ChatbotList holds the unfiltered chatbots and the subset matching Query
type ChatbotList struct {
	All      []models.Chatbot
	Filtered []models.Chatbot
	Query    string
}

// Set replaces the list and re-applies the current query
func (l *ChatbotList) Set(chatbots []models.Chatbot) {
	l.All = append([]models.Chatbot(nil), chatbots...)
	l.ApplyFilter(l.Query)
}

// ApplyFilter keeps chatbots whose name or system prompt contains query,
// case-insensitively. A blank query keeps everything.
func (l *ChatbotList) ApplyFilter(query string) {
	l.Query = query
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		l.Filtered = append([]models.Chatbot(nil), l.All...)
		return
	}

	filtered := make([]models.Chatbot, 0, len(l.All))
	for _, c := range l.All {
		if strings.Contains(strings.ToLower(c.Name), needle) ||
			strings.Contains(strings.ToLower(c.SystemPrompt), needle) {
			filtered = append(filtered, c)
		}
	}
	l.Filtered = filtered
}

// Remove drops id from both lists, keeping the order of the others
func (l *ChatbotList) Remove(id string) {
	l.All = withoutChatbot(l.All, id)
	l.Filtered = withoutChatbot(l.Filtered, id)
}

func withoutChatbot(list []models.Chatbot, id string) []models.Chatbot {
	out := make([]models.Chatbot, 0, len(list))
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Dashboard lists and deletes chatbots on the backend
type Dashboard struct {
	backend Backend
	logger  utils.Logger

	mu   sync.Mutex
	list ChatbotList
}

// NewDashboard creates an empty dashboard
func NewDashboard(backend Backend, logger utils.Logger) *Dashboard {
	return &Dashboard{backend: backend, logger: logger}
}

// Refresh reloads the chatbots from the backend, keeping the current filter
func (d *Dashboard) Refresh(ctx context.Context) (ChatbotList, error) {
	chatbots, err := d.backend.ListChatbots(ctx)
	if err != nil {
		d.logger.Warn("Dashboard", "Failed to load chatbots", map[string]interface{}{"error": err.Error()})
		return d.View(), err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.list.Set(chatbots)
	return d.snapshot(), nil
}

// Filter applies a search query to the loaded chatbots
func (d *Dashboard) Filter(query string) ChatbotList {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.list.ApplyFilter(query)
	return d.snapshot()
}

// Delete removes a chatbot remotely and then from both local lists.
// On failure the lists are left untouched.
func (d *Dashboard) Delete(ctx context.Context, id string) (ChatbotList, error) {
	if err := d.backend.DeleteChatbot(ctx, id); err != nil {
		d.logger.Warn("Dashboard", "Failed to delete chatbot", map[string]interface{}{"chatbot_id": id, "error": err.Error()})
		return d.View(), err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.list.Remove(id)
	d.logger.Info("Dashboard", "Chatbot deleted", map[string]interface{}{"chatbot_id": id})
	return d.snapshot(), nil
}

// View returns a copy of the current lists
func (d *Dashboard) View() ChatbotList {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

func (d *Dashboard) snapshot() ChatbotList {
	return ChatbotList{
		All:      append([]models.Chatbot(nil), d.list.All...),
		Filtered: append([]models.Chatbot(nil), d.list.Filtered...),
		Query:    d.list.Query,
	}
}
