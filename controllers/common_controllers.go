package controllers

import (
	"net/http"
	"time"
)

// HealthHandler provides a health check endpoint
func (c *Controller) HealthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":        "healthy",
		"component":     "chatbot-wizard",
		"uptime":        time.Since(c.startTime).String(),
		"live_sessions": c.registry.Len(),
		"endpoints":     []string{"/create", "/wizard/state", "/dashboard", "/chat/{id}", "/health"},
	}
	if c.discordService != nil {
		health["discord"] = c.discordService.GetStatus()
	}

	writeJSON(w, http.StatusOK, health)
}
