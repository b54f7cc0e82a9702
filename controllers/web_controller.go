package controllers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"ragwizard/models"
	"ragwizard/services"
	"ragwizard/utils"
	"ragwizard/views"
)

// SessionCookie carries the wizard session id
const SessionCookie = "wizard_session"

// Controller serves the wizard, dashboard and chat pages
type Controller struct {
	registry       *services.WizardRegistry
	backend        services.Backend
	discordService *services.DiscordService
	templates      *template.Template
	stagingDir     string
	logger         utils.Logger
	startTime      time.Time
}

// NewController parses the embedded templates and wires the services
func NewController(registry *services.WizardRegistry, backend services.Backend, discordService *services.DiscordService, stagingDir string, logger utils.Logger) (*Controller, error) {
	tmpl, err := views.Parse(template.FuncMap{
		"fileSize": services.FormatFileSize,
	})
	if err != nil {
		return nil, err
	}

	return &Controller{
		registry:       registry,
		backend:        backend,
		discordService: discordService,
		templates:      tmpl,
		stagingDir:     stagingDir,
		logger:         logger,
		startTime:      time.Now(),
	}, nil
}

// StartServices starts the Discord relay when it is configured
func (c *Controller) StartServices() error {
	if c.discordService == nil || !c.discordService.IsEnabled() {
		c.logger.Info("Controller", "Discord relay not configured, skipping", nil)
		return nil
	}
	return c.discordService.Start()
}

// StopServices stops all background services
func (c *Controller) StopServices() error {
	if c.discordService != nil {
		return c.discordService.Stop()
	}
	return nil
}

// renderTemplate renders a named page. Output is buffered so a failing
// template never leaves a half-written page.
func (c *Controller) renderTemplate(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := c.templates.ExecuteTemplate(&buf, name, data); err != nil {
		c.logger.Error("Controller", "Error executing template", map[string]interface{}{"template": name, "error": err})
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// sessionID returns the wizard session id from the cookie, issuing a new one
// when it is missing or malformed.
func (c *Controller) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// orchestrator resolves the live orchestrator for the request's session
func (c *Controller) orchestrator(w http.ResponseWriter, r *http.Request) (*services.Orchestrator, bool) {
	id := c.sessionID(w, r)
	o, err := c.registry.Get(r.Context(), id)
	if err != nil {
		c.logger.Error("Controller", "Failed to load wizard session", map[string]interface{}{"session_id": id, "error": err})
		writeError(w, http.StatusInternalServerError, "Failed to load wizard session")
		return nil, false
	}
	return o, true
}

// wantsJSON reports whether the caller is an API client rather than a form post
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: models.ErrorDetail{Message: message}})
}

// statusFor maps the wizard error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		validation  *services.ValidationError
		constraint  *services.UploadConstraintError
		constraints services.ConstraintErrors
		upload      *services.UploadError
		step        *services.StepError
		remote      *services.RemoteError
		network     *services.NetworkError
		timeout     *services.TimeoutError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation), errors.As(err, &constraint), errors.As(err, &constraints), errors.As(err, &upload):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrBusy), errors.As(err, &step):
		return http.StatusConflict
	case errors.As(err, &remote), errors.As(err, &network):
		return http.StatusBadGateway
	case errors.As(err, &timeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
