package controllers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"ragwizard/models"
	"ragwizard/services"
)

// DashboardHandler lists the chatbots, filtered by ?q=
func (c *Controller) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	dashboard := services.NewDashboard(c.backend, c.logger)
	dashboard.Filter(r.URL.Query().Get("q"))

	list, err := dashboard.Refresh(r.Context())
	page := DashboardPage{List: list}
	if err != nil {
		page.Error = services.UserMessage(err, "Failed to load chatbots")
	}

	if wantsJSON(r) {
		if err != nil {
			writeError(w, statusFor(err), page.Error)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"chatbots": nonNil(list.Filtered),
			"total":    len(list.All),
			"query":    list.Query,
		})
		return
	}

	c.renderTemplate(w, http.StatusOK, "dashboard.html", page)
}

// DeleteChatbotHandler deletes a chatbot from the backend and answers with the
// list as it stands afterwards, still filtered by ?q=
func (c *Controller) DeleteChatbotHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]
	query := r.FormValue("q")
	asJSON := wantsJSON(r) || r.Method == http.MethodDelete

	dashboard := services.NewDashboard(c.backend, c.logger)
	dashboard.Filter(query)
	if _, err := dashboard.Refresh(r.Context()); err != nil {
		c.logger.Warn("Dashboard", "Deleting without a loaded list", map[string]interface{}{"chatbot_id": chatbotID, "error": err.Error()})
	}

	list, err := dashboard.Delete(r.Context(), chatbotID)
	if err != nil {
		message := services.UserMessage(err, "Failed to delete chatbot")
		if asJSON {
			writeError(w, statusFor(err), message)
			return
		}
		http.Error(w, message, statusFor(err))
		return
	}

	if asJSON {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   models.StatusSuccess,
			"id":       chatbotID,
			"chatbots": nonNil(list.Filtered),
			"total":    len(list.All),
			"query":    list.Query,
		})
		return
	}

	target := "/dashboard"
	if query != "" {
		target += "?q=" + url.QueryEscape(query)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func nonNil(list []models.Chatbot) []models.Chatbot {
	if list == nil {
		return []models.Chatbot{}
	}
	return list
}
