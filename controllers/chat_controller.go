package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"ragwizard/models"
	"ragwizard/services"
)

// ChatPage is the data behind chat.html
type ChatPage struct {
	Chatbot models.Chatbot
	Error   string
}

// ChatPageHandler renders the chat page for a finished chatbot
func (c *Controller) ChatPageHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]

	page := ChatPage{Chatbot: models.Chatbot{ID: chatbotID}}
	chatbot, err := c.backend.GetChatbot(r.Context(), chatbotID)
	if err != nil {
		c.logger.Warn("Chat", "Failed to load chatbot", map[string]interface{}{"chatbot_id": chatbotID, "error": err.Error()})
		page.Error = services.UserMessage(err, "Failed to load chatbot details")
	} else if chatbot != nil {
		page.Chatbot = *chatbot
	}

	c.renderTemplate(w, http.StatusOK, "chat.html", page)
}

// ChatHandler relays a question with the caller's history to the chatbot
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	// Validate question
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "Please enter a question")
		return
	}

	answer, err := c.backend.Query(r.Context(), chatbotID, strings.TrimSpace(req.Question), req.ChatHistory)
	if err != nil {
		c.logger.Warn("Chat", "Query failed", map[string]interface{}{"chatbot_id": chatbotID, "error": err.Error()})
		writeError(w, statusFor(err), services.UserMessage(err, "Failed to get response"))
		return
	}

	writeJSON(w, http.StatusOK, models.QueryResponse{Response: answer})
}
