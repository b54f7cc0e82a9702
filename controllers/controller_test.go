package controllers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragwizard/models"
	"ragwizard/services"
	"ragwizard/utils"
)

// stubBackend is an in-memory chatbot backend served over HTTP
type stubBackend struct {
	mu          sync.Mutex
	chatbots    []models.Chatbot
	statusCalls int
	uploads     []string
}

func (b *stubBackend) handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/chatbot", func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateChatbotRequest
		json.NewDecoder(r.Body).Decode(&req)
		c := models.Chatbot{ID: "bot-1", Name: req.Name, SystemPrompt: req.SystemPrompt, Status: models.ChatbotCreating}
		b.mu.Lock()
		b.chatbots = append(b.chatbots, c)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(c)
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/chatbot/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		b.mu.Lock()
		for _, fh := range r.MultipartForm.File["files"] {
			b.uploads = append(b.uploads, fh.Filename)
		}
		b.mu.Unlock()
		w.Write([]byte(`{}`))
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/chatbot/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.statusCalls++
		status := models.ChatbotProcessing
		if b.statusCalls >= 2 {
			status = models.ChatbotReady
		}
		b.mu.Unlock()
		json.NewEncoder(w).Encode(models.StatusResponse{ChatbotStatus: status, TotalDocuments: 1})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/chatbot/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		var req models.QueryRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(models.QueryResponse{Response: "echo: " + req.Question})
	}).Methods(http.MethodPost)
	r.HandleFunc("/api/chatbot/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.GetChatbotResponse{Chatbot: &models.Chatbot{ID: mux.Vars(r)["id"], Name: "Bot", SystemPrompt: "Prompt"}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/chatbot/{id}", func(w http.ResponseWriter, r *http.Request) {
		if mux.Vars(r)["id"] == "missing" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"message":"Chatbot not found"}}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	r.HandleFunc("/api/chatbots", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(models.ListChatbotsResponse{Chatbots: b.chatbots})
	}).Methods(http.MethodGet)
	return r
}

type testEnv struct {
	t       *testing.T
	router  http.Handler
	backend *stubBackend
	cookie  *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stub := &stubBackend{}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	logger := utils.NewNopLogger()
	backend := services.NewBackendClient(server.URL, 5*time.Second, logger)
	opts := services.WizardOptions{PollInterval: time.Millisecond, PollMaxAttempts: 60, WaitForProcessing: true}
	registry := services.NewWizardRegistry(services.NewMemorySessionStore(time.Hour), backend, opts, time.Hour, logger)

	controller, err := NewController(registry, backend, nil, t.TempDir(), logger)
	require.NoError(t, err)

	return &testEnv{t: t, router: controller.Routes(), backend: stub}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			e.cookie = c
		}
	}
	return rec
}

func (e *testEnv) postJSON(path string, body interface{}) (*httptest.ResponseRecorder, WizardResponse) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rec := e.do(req)

	var resp WizardResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func (e *testEnv) postFiles(names ...string) (*httptest.ResponseRecorder, WizardResponse) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(e.t, err)
		part.Write([]byte("content of " + name))
	}
	require.NoError(e.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/wizard/files", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	rec := e.do(req)

	var resp WizardResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestWizardPage_IssuesSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/create", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.cookie)
	assert.Contains(t, rec.Body.String(), "Basic Settings")
	assert.Contains(t, rec.Body.String(), "Step 1 of 4")
}

func TestWizardPage_LaterStepWithoutChatbotRedirects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/create/step/3", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/create", rec.Header().Get("Location"))
}

func TestCreateChatbot_BlankFields(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.postJSON("/wizard/chatbot", models.CreateChatbotRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.StatusError, resp.Status)
	assert.Equal(t, "Please fill in all fields", resp.Error)
	assert.Equal(t, "Chatbot name is required", resp.Session.Errors["name"])
	assert.Equal(t, "System prompt is required", resp.Session.Errors["prompt"])
	assert.Equal(t, 1, resp.Session.Step)
}

func TestCreateChatbot_FormPostRedirectsToNextStep(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/wizard/chatbot", strings.NewReader("name=Bot&system_prompt=Be+helpful"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/create/step/2", rec.Header().Get("Location"))

	page := env.do(httptest.NewRequest(http.MethodGet, "/create/step/2", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Upload Documents")
}

func TestWizard_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.postJSON("/wizard/chatbot", models.CreateChatbotRequest{Name: "Bot", SystemPrompt: "Be helpful"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Session.Step)

	rec, resp = env.postFiles("guide.pdf", "virus.exe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, resp.Session.Files, 1)
	assert.Equal(t, "guide.pdf", resp.Session.Files[0].Name)
	assert.Contains(t, resp.Session.Errors["files"], "Invalid file type: virus.exe")

	rec, resp = env.postJSON("/wizard/upload?wait=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, resp.Session.Step)
	assert.Equal(t, []string{"guide.pdf"}, env.backend.uploads)

	rec, resp = env.postJSON("/wizard/query", models.QueryRequest{Question: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "echo: hello"},
	}, resp.Session.History)

	rec, resp = env.postJSON("/wizard/finish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, resp.Session.Step)
	assert.True(t, resp.Session.CanChat)

	req := httptest.NewRequest(http.MethodPost, "/wizard/complete", strings.NewReader("next=chat"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/chat/bot-1", rec.Header().Get("Location"))

	state := env.do(httptest.NewRequest(http.MethodGet, "/wizard/state", nil))
	var fresh WizardResponse
	require.NoError(t, json.Unmarshal(state.Body.Bytes(), &fresh))
	assert.Equal(t, 1, fresh.Session.Step)
	assert.Empty(t, fresh.Session.ChatbotID)
}

func TestWizard_ActionOnWrongStepConflicts(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.postJSON("/wizard/query", models.QueryRequest{Question: "hello"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.StatusError, resp.Status)
}

func TestWizard_RemoveFileAndAbandon(t *testing.T) {
	env := newTestEnv(t)
	env.postJSON("/wizard/chatbot", models.CreateChatbotRequest{Name: "Bot", SystemPrompt: "Be helpful"})
	_, resp := env.postFiles("a.pdf", "b.txt")
	require.Len(t, resp.Session.Files, 2)

	req := httptest.NewRequest(http.MethodDelete, "/wizard/files/0", nil)
	req.Header.Set("Accept", "application/json")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	require.Len(t, resp.Session.Files, 1)
	assert.Equal(t, "b.txt", resp.Session.Files[0].Name)

	req = httptest.NewRequest(http.MethodDelete, "/wizard", nil)
	req.Header.Set("Accept", "application/json")
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	json.Unmarshal(rec.Body.Bytes(), &resp)
	assert.Equal(t, 1, resp.Session.Step)
	assert.Empty(t, resp.Session.Files)
}

func TestDashboard_JSONFilter(t *testing.T) {
	env := newTestEnv(t)
	env.backend.chatbots = []models.Chatbot{
		{ID: "1", Name: "Support Bot", SystemPrompt: "billing"},
		{ID: "2", Name: "Sales", SystemPrompt: "Be persuasive"},
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard?q=SUPPORT", nil)
	req.Header.Set("Accept", "application/json")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Chatbots []models.Chatbot `json:"chatbots"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Chatbots, 1)
	assert.Equal(t, "1", body.Chatbots[0].ID)
}

func TestDashboard_HTML(t *testing.T) {
	env := newTestEnv(t)
	env.backend.chatbots = []models.Chatbot{{ID: "1", Name: "Support Bot", Status: models.ChatbotReady}}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Support Bot")
	assert.Contains(t, rec.Body.String(), "/dashboard/chatbots/1/delete")
}

func TestDeleteChatbot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/dashboard/chatbots/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/dashboard/chatbots/missing", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "Chatbot not found", errResp.Error.Message)

	rec = env.do(httptest.NewRequest(http.MethodPost, "/dashboard/chatbots/1/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestChatHandler(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/chat/bot-1", strings.NewReader(`{"question":"  "}`))
	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/chat/bot-1", strings.NewReader(`{"question":"hi","chat_history":[]}`))
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hi", resp.Response)

	page := env.do(httptest.NewRequest(http.MethodGet, "/chat/bot-1", nil))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Bot")
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestDeleteChatbot_UnderFilter(t *testing.T) {
	env := newTestEnv(t)
	env.backend.chatbots = []models.Chatbot{
		{ID: "1", Name: "Support EU"},
		{ID: "2", Name: "Sales"},
		{ID: "3", Name: "Support US"},
		{ID: "4", Name: "Support APAC"},
	}

	rec := env.do(httptest.NewRequest(http.MethodDelete, "/dashboard/chatbots/3?q=support", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Chatbots []models.Chatbot `json:"chatbots"`
		Total    int              `json:"total"`
		Query    string           `json:"query"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, "support", body.Query)
	ids := make([]string, 0, len(body.Chatbots))
	for _, c := range body.Chatbots {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"1", "4"}, ids)

	req := httptest.NewRequest(http.MethodPost, "/dashboard/chatbots/3/delete", strings.NewReader("q=support"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = env.do(req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard?q=support", rec.Header().Get("Location"))
}
