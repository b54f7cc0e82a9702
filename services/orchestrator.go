package services

import (
	"context"
	"sync"
	"time"

	"ragwizard/models"
	"ragwizard/utils"
)

// WizardOptions tune how the orchestrator runs effects
type WizardOptions struct {
	PollInterval      time.Duration
	PollMaxAttempts   int
	WaitForProcessing bool
}

// DefaultWizardOptions polls every 5s up to 60 times after an upload
func DefaultWizardOptions() WizardOptions {
	return WizardOptions{
		PollInterval:      DefaultPollInterval,
		PollMaxAttempts:   DefaultPollMaxAttempts,
		WaitForProcessing: true,
	}
}

// Orchestrator owns one wizard session. It runs Transition, performs the
// resulting effects against the backend and persists the session.
type Orchestrator struct {
	mu      sync.Mutex
	session models.WizardSession

	backend Backend
	store   SessionStore
	poller  *StatusPoller
	opts    WizardOptions
	logger  utils.Logger

	onChange func(models.WizardSession)
}

// NewOrchestrator wraps session. store may be nil for a throwaway session.
func NewOrchestrator(session models.WizardSession, backend Backend, store SessionStore, opts WizardOptions, logger utils.Logger) *Orchestrator {
	if session.Errors == nil {
		session.Errors = make(map[models.ErrorSlot][]string)
	}
	if !session.CurrentStep.Valid() {
		session.CurrentStep = models.StepInitialize
	}
	return &Orchestrator{
		session: session,
		backend: backend,
		store:   store,
		poller:  NewStatusPoller(backend, opts.PollInterval, opts.PollMaxAttempts, logger),
		opts:    opts,
		logger:  logger,
	}
}

// OnChange registers a callback invoked with every new session state,
// including changes made by the background poll.
func (o *Orchestrator) OnChange(fn func(models.WizardSession)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// Session returns a copy of the current state
func (o *Orchestrator) Session() models.WizardSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Clone()
}

// Dispatch applies ev and every follow-up event its effects produce. It
// returns the resulting session and the first error surfaced on the way.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) (models.WizardSession, error) {
	queue := []Event{ev}
	var firstErr error

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		o.mu.Lock()
		next, effects, err := Transition(o.session, current)
		next.UpdatedAt = time.Now().UTC()
		o.session = next
		onChange := o.onChange
		o.mu.Unlock()

		if err != nil && firstErr == nil {
			firstErr = err
		}
		if onChange != nil {
			onChange(next.Clone())
		}

		for _, effect := range effects {
			if follow := o.run(ctx, effect); follow != nil {
				queue = append(queue, follow)
			}
		}
	}

	return o.Session(), firstErr
}

// run performs one effect outside the session lock and returns the event
// describing its result, if any.
func (o *Orchestrator) run(ctx context.Context, effect Effect) Event {
	switch e := effect.(type) {
	case CallGeneratePrompt:
		prompt, err := o.backend.GenerateSystemPrompt(ctx, e.Instructions)
		if err != nil {
			return o.failed(OpGeneratePrompt, err)
		}
		return PromptGenerated{Prompt: prompt}

	case CallCreateChatbot:
		chatbot, err := o.backend.CreateChatbot(ctx, e.Name, e.SystemPrompt)
		if err != nil {
			return o.failed(OpCreateChatbot, err)
		}
		o.logger.Info("Wizard", "Chatbot created", map[string]interface{}{"chatbot_id": chatbot.ID, "name": chatbot.Name})
		return ChatbotCreated{Chatbot: *chatbot}

	case CallUpload:
		if _, err := o.backend.UploadDocuments(ctx, e.ChatbotID, e.Files); err != nil {
			return o.failed(OpUpload, err)
		}
		return DocumentsUploaded{Poll: o.opts.WaitForProcessing}

	case StartPolling:
		return o.startPolling(ctx, e)

	case StopPolling:
		o.poller.Cancel()
		return nil

	case CallFetchDetails:
		chatbot, err := o.backend.GetChatbot(ctx, e.ChatbotID)
		if err != nil {
			o.logger.Warn("Wizard", "Failed to load chatbot details", map[string]interface{}{"chatbot_id": e.ChatbotID, "error": err.Error()})
			chatbot = nil
		}
		status, err := o.backend.GetStatus(ctx, e.ChatbotID)
		if err != nil {
			o.logger.Warn("Wizard", "Failed to load chatbot status", map[string]interface{}{"chatbot_id": e.ChatbotID, "error": err.Error()})
			status = nil
		}
		if chatbot == nil && status == nil {
			return o.failed(OpLoadDetails, err)
		}
		return DetailsLoaded{Chatbot: chatbot, Status: status}

	case CallQuery:
		answer, err := o.backend.Query(ctx, e.ChatbotID, e.Question, e.History)
		if err != nil {
			return o.failed(OpQuery, err)
		}
		return QueryAnswered{Question: e.Question, Answer: answer}

	case CallUpdate:
		if err := o.backend.UpdateChatbot(ctx, e.ChatbotID, e.SystemPrompt, e.Model); err != nil {
			return o.failed(OpUpdateConfig, err)
		}
		return ConfigSaved{SystemPrompt: e.SystemPrompt, Model: e.Model}

	case SaveSession:
		o.save(ctx)
		return nil

	case ClearSession:
		o.clear(ctx)
		return nil
	}
	return nil
}

func (o *Orchestrator) failed(op string, err error) Event {
	o.logger.Warn("Wizard", "Operation failed", map[string]interface{}{"op": op, "error": err.Error()})
	return OperationFailed{Op: op, Err: err}
}

// startPolling runs the status poll detached from the caller's context: the
// poll outlives the request that triggered it.
func (o *Orchestrator) startPolling(ctx context.Context, e StartPolling) Event {
	pollCtx := context.WithoutCancel(ctx)
	generation := e.Generation

	err := o.poller.Start(pollCtx, e.ChatbotID, PollHandlers{
		OnTick: func(attempt int, status *models.StatusResponse) {
			o.Dispatch(pollCtx, StatusPolled{Generation: generation, Attempt: attempt, Status: *status})
		},
		OnDone: func(result PollResult) {
			o.Dispatch(pollCtx, PollFinished{Generation: generation, Result: result})
		},
	})
	if err != nil {
		return PollFinished{Generation: generation, Result: PollResult{Outcome: PollAborted, Err: err}}
	}

	o.logger.Info("Wizard", "Processing poll started", map[string]interface{}{"chatbot_id": e.ChatbotID, "generation": generation})
	return nil
}

func (o *Orchestrator) save(ctx context.Context) {
	if o.store == nil {
		return
	}
	session := o.Session()
	if err := o.store.Save(ctx, session); err != nil {
		o.logger.Error("Wizard", "Failed to save session", map[string]interface{}{"session_id": session.ID, "error": err})
	}
}

func (o *Orchestrator) clear(ctx context.Context) {
	if o.store == nil {
		return
	}
	id := o.Session().ID
	if err := o.store.Delete(ctx, id); err != nil {
		o.logger.Error("Wizard", "Failed to delete session", map[string]interface{}{"session_id": id, "error": err})
	}
}

// WaitForPoll blocks until no processing poll is running for this session
func (o *Orchestrator) WaitForPoll() models.WizardSession {
	o.poller.Wait()
	return o.Session()
}

// Close stops any running poll
func (o *Orchestrator) Close() {
	o.poller.Cancel()
}

// Convenience wrappers used by the view layers

func (o *Orchestrator) GeneratePrompt(ctx context.Context, instructions string) (models.WizardSession, error) {
	return o.Dispatch(ctx, GeneratePrompt{Instructions: instructions})
}

func (o *Orchestrator) CreateChatbot(ctx context.Context, name, systemPrompt string) (models.WizardSession, error) {
	return o.Dispatch(ctx, CreateChatbot{Name: name, SystemPrompt: systemPrompt})
}

func (o *Orchestrator) SelectFiles(ctx context.Context, files []models.SelectedFile) (models.WizardSession, error) {
	return o.Dispatch(ctx, SelectFiles{Files: files})
}

// RemoveFile drops the entry at index if its staged path is still path
func (o *Orchestrator) RemoveFile(ctx context.Context, index int, path string) (models.WizardSession, error) {
	return o.Dispatch(ctx, RemoveFile{Index: index, Path: path})
}

func (o *Orchestrator) Upload(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, UploadDocuments{})
}

func (o *Orchestrator) LoadDetails(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, LoadDetails{})
}

func (o *Orchestrator) Query(ctx context.Context, question string) (models.WizardSession, error) {
	return o.Dispatch(ctx, SendQuery{Question: question})
}

func (o *Orchestrator) UpdateConfig(ctx context.Context, systemPrompt, model string) (models.WizardSession, error) {
	return o.Dispatch(ctx, UpdateConfig{SystemPrompt: systemPrompt, Model: model})
}

func (o *Orchestrator) Back(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, GoBack{})
}

func (o *Orchestrator) Finish(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, Finish{})
}

func (o *Orchestrator) Complete(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, Complete{})
}

func (o *Orchestrator) Abandon(ctx context.Context) (models.WizardSession, error) {
	return o.Dispatch(ctx, Abandon{})
}
