package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes builds the router. Every non-GET route has a POST alias so the
// plain HTML forms can reach it.
func (c *Controller) Routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", c.WizardPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/create", c.WizardPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/create/step/{step}", c.WizardPageHandler).Methods(http.MethodGet)

	w := r.PathPrefix("/wizard").Subrouter()
	w.HandleFunc("/state", c.StateHandler).Methods(http.MethodGet)
	w.HandleFunc("/generate-prompt", c.GeneratePromptHandler).Methods(http.MethodPost)
	w.HandleFunc("/chatbot", c.CreateChatbotHandler).Methods(http.MethodPost)
	w.HandleFunc("/files", c.SelectFilesHandler).Methods(http.MethodPost)
	w.HandleFunc("/files/{index:[0-9]+}", c.RemoveFileHandler).Methods(http.MethodDelete)
	w.HandleFunc("/files/{index:[0-9]+}/remove", c.RemoveFileHandler).Methods(http.MethodPost)
	w.HandleFunc("/upload", c.UploadHandler).Methods(http.MethodPost)
	w.HandleFunc("/query", c.QueryHandler).Methods(http.MethodPost)
	w.HandleFunc("/config", c.UpdateConfigHandler).Methods(http.MethodPut, http.MethodPost)
	w.HandleFunc("/back", c.BackHandler).Methods(http.MethodPost)
	w.HandleFunc("/finish", c.FinishHandler).Methods(http.MethodPost)
	w.HandleFunc("/complete", c.CompleteHandler).Methods(http.MethodPost)
	w.HandleFunc("/abandon", c.AbandonHandler).Methods(http.MethodPost)
	r.HandleFunc("/wizard", c.AbandonHandler).Methods(http.MethodDelete)

	r.HandleFunc("/dashboard", c.DashboardHandler).Methods(http.MethodGet)
	r.HandleFunc("/dashboard/chatbots/{id}", c.DeleteChatbotHandler).Methods(http.MethodDelete)
	r.HandleFunc("/dashboard/chatbots/{id}/delete", c.DeleteChatbotHandler).Methods(http.MethodPost)

	r.HandleFunc("/chat/{id}", c.ChatPageHandler).Methods(http.MethodGet)
	r.HandleFunc("/chat/{id}", c.ChatHandler).Methods(http.MethodPost)

	r.HandleFunc("/health", c.HealthHandler).Methods(http.MethodGet)
	return r
}
