package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"ragwizard/models"
	"ragwizard/services"
)

// maxSelectionMemory is how much of a multipart selection is held in memory
// before the rest spills to temporary files.
const maxSelectionMemory = 32 << 20

func stepURL(step models.WizardStep) string {
	if step == models.StepInitialize {
		return "/create"
	}
	return fmt.Sprintf("/create/step/%d", step)
}

// decodeRequest reads a JSON body into dst, or hands the parsed form to fromForm
func decodeRequest(r *http.Request, dst interface{}, fromForm func(url.Values)) error {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.Form)
	return nil
}

// respond answers a wizard action: JSON for API clients, otherwise a redirect
// back to the page of the session's current step.
func (c *Controller) respond(w http.ResponseWriter, r *http.Request, session models.WizardSession, err error) {
	if err != nil {
		c.logger.Debug("Wizard", "Action returned an error", map[string]interface{}{
			"session_id": session.ID,
			"path":       r.URL.Path,
			"error":      err.Error(),
		})
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, stepURL(session.CurrentStep), http.StatusSeeOther)
		return
	}

	resp := WizardResponse{Status: models.StatusSuccess, Session: newSessionView(session)}
	if err != nil {
		resp.Status = models.StatusError
		resp.Error = services.UserMessage(err, "Something went wrong")
	}
	writeJSON(w, statusFor(err), resp)
}

func (c *Controller) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	if wantsJSON(r) {
		writeError(w, http.StatusBadRequest, message)
		return
	}
	http.Error(w, message, http.StatusBadRequest)
}

// WizardPageHandler renders the page for the session's current step. A
// requested step that is not the current one redirects to the current one.
func (c *Controller) WizardPageHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session := o.Session()

	if raw, found := mux.Vars(r)["step"]; found {
		n, err := strconv.Atoi(raw)
		step := models.WizardStep(n)
		if err != nil || !step.Valid() {
			http.NotFound(w, r)
			return
		}
		if step > models.StepInitialize && !session.HasChatbot() {
			http.Redirect(w, r, "/create", http.StatusSeeOther)
			return
		}
		if step != session.CurrentStep {
			http.Redirect(w, r, stepURL(session.CurrentStep), http.StatusSeeOther)
			return
		}
	}

	if session.CurrentStep == models.StepTest && session.Pending == "" {
		session, _ = o.LoadDetails(r.Context())
	}

	c.renderTemplate(w, http.StatusOK, "wizard.html", WizardPage{Session: newSessionView(session)})
}

// StateHandler returns the session view as JSON
func (c *Controller) StateHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, WizardResponse{Status: models.StatusSuccess, Session: newSessionView(o.Session())})
}

// GeneratePromptHandler asks the backend for a system prompt
func (c *Controller) GeneratePromptHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GeneratePromptRequest
	if err := decodeRequest(r, &req, func(form url.Values) {
		req.SpecialInstructions = form.Get("special_instructions")
	}); err != nil {
		c.badRequest(w, r, "Invalid request format")
		return
	}

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.GeneratePrompt(r.Context(), req.SpecialInstructions)
	c.respond(w, r, session, err)
}

// CreateChatbotHandler submits step 1
func (c *Controller) CreateChatbotHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChatbotRequest
	if err := decodeRequest(r, &req, func(form url.Values) {
		req.Name = form.Get("name")
		req.SystemPrompt = form.Get("system_prompt")
	}); err != nil {
		c.badRequest(w, r, "Invalid request format")
		return
	}

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.CreateChatbot(r.Context(), req.Name, req.SystemPrompt)
	c.respond(w, r, session, err)
}

// SelectFilesHandler adds multipart "files" to the selection. Files failing
// the type or size check are never written to disk; staged files the
// selection refuses are removed again.
func (c *Controller) SelectFilesHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSelectionMemory); err != nil {
		c.badRequest(w, r, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	sessionID := o.Session().ID

	headers := r.MultipartForm.File["files"]
	incoming := make([]models.SelectedFile, 0, len(headers))
	var staged []string
	for _, fh := range headers {
		file := models.SelectedFile{Name: filepath.Base(fh.Filename), Size: fh.Size}
		if services.CheckFile(file) == nil {
			path, err := c.stageFile(sessionID, fh)
			if err != nil {
				c.logger.Error("Wizard", "Failed to stage file", map[string]interface{}{"file": file.Name, "error": err})
				c.removeFiles(staged)
				c.respond(w, r, o.Session(), &services.UploadError{Message: "Failed to read " + file.Name})
				return
			}
			file.Path = path
			staged = append(staged, path)
		}
		incoming = append(incoming, file)
	}

	session, err := o.SelectFiles(r.Context(), incoming)

	kept := make(map[string]bool, len(session.SelectedFiles))
	for _, f := range session.SelectedFiles {
		kept[f.Path] = true
	}
	for _, path := range staged {
		if !kept[path] {
			os.Remove(path)
		}
	}

	c.respond(w, r, session, err)
}

// RemoveFileHandler drops one entry from the selection
func (c *Controller) RemoveFileHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		c.badRequest(w, r, "Invalid file index")
		return
	}

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}

	var path string
	if files := o.Session().SelectedFiles; index >= 0 && index < len(files) {
		path = files[index].Path
	}

	// the removal is refused if the entry at index no longer holds path
	session, err := o.RemoveFile(r.Context(), index, path)
	if err == nil && path != "" {
		os.Remove(path)
	}
	c.respond(w, r, session, err)
}

// UploadHandler sends the selection to the backend and starts the processing
// poll. API clients may pass ?wait=true to block until the poll settles.
func (c *Controller) UploadHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}

	session, err := o.Upload(r.Context())
	if err == nil && wantsJSON(r) && r.URL.Query().Get("wait") == "true" {
		session = o.WaitForPoll()
		err = pollError(session)
	}
	c.respond(w, r, session, err)
}

// pollError recovers the outcome of a finished poll from the session's files slot
func pollError(session models.WizardSession) error {
	switch session.ErrorText(models.SlotFiles) {
	case "":
		return nil
	case services.ProcessingTimeoutMessage:
		return &services.TimeoutError{Attempts: session.PollAttempts}
	default:
		return &services.RemoteError{Op: services.OpPoll, Message: session.ErrorText(models.SlotFiles)}
	}
}

// QueryHandler sends a test question on step 3
func (c *Controller) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeRequest(r, &req, func(form url.Values) {
		req.Question = form.Get("question")
	}); err != nil {
		c.badRequest(w, r, "Invalid request format")
		return
	}

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.Query(r.Context(), req.Question)
	c.respond(w, r, session, err)
}

// UpdateConfigHandler saves the edited system prompt and model
func (c *Controller) UpdateConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateChatbotRequest
	if err := decodeRequest(r, &req, func(form url.Values) {
		req.SystemPrompt = form.Get("system_prompt")
		req.Model = form.Get("model")
	}); err != nil {
		c.badRequest(w, r, "Invalid request format")
		return
	}

	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.UpdateConfig(r.Context(), req.SystemPrompt, req.Model)
	c.respond(w, r, session, err)
}

// BackHandler returns to the previous step, cancelling any processing poll
func (c *Controller) BackHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.Back(r.Context())
	c.respond(w, r, session, err)
}

// FinishHandler moves from the test step to the summary
func (c *Controller) FinishHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.Finish(r.Context())
	c.respond(w, r, session, err)
}

// CompleteHandler ends the wizard and leaves for the chat page or the dashboard
func (c *Controller) CompleteHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}

	session, err := o.Complete(r.Context())
	if err != nil {
		c.respond(w, r, session, err)
		return
	}

	c.registry.Forget(session.ID)
	c.removeStaging(session.ID)

	target := "/dashboard"
	if r.FormValue("next") == "chat" && session.CanChat() {
		target = "/chat/" + url.PathEscape(session.ChatbotID)
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   models.StatusSuccess,
			"session":  newSessionView(session),
			"redirect": target,
		})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// AbandonHandler discards the session and starts over on step 1
func (c *Controller) AbandonHandler(w http.ResponseWriter, r *http.Request) {
	o, ok := c.orchestrator(w, r)
	if !ok {
		return
	}
	session, err := o.Abandon(r.Context())
	c.removeStaging(session.ID)
	c.respond(w, r, session, err)
}

func (c *Controller) stageFile(sessionID string, fh *multipart.FileHeader) (string, error) {
	dir := filepath.Join(c.stagingDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, uuid.NewString()+"-"+filepath.Base(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

func (c *Controller) removeFiles(paths []string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

func (c *Controller) removeStaging(sessionID string) {
	if sessionID == "" {
		return
	}
	if err := os.RemoveAll(filepath.Join(c.stagingDir, sessionID)); err != nil {
		c.logger.Warn("Wizard", "Failed to remove staged files", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
}
