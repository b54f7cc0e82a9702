package services

import (
	"strings"

	"ragwizard/models"
)

// Operation names, used for the pending marker and for logging
const (
	OpGeneratePrompt = "generate_prompt"
	OpCreateChatbot  = "create_chatbot"
	OpSelectFiles    = "select_files"
	OpUpload         = "upload_documents"
	OpPoll           = "poll_status"
	OpLoadDetails    = "load_details"
	OpQuery          = "query"
	OpUpdateConfig   = "update_config"
	OpBack           = "back"
	OpFinish         = "finish"
	OpComplete       = "complete"
)

// Event is an input to Transition: a user action or the result of an effect
type Event interface {
	event()
}

type GeneratePrompt struct{ Instructions string }
type PromptGenerated struct{ Prompt string }
type CreateChatbot struct{ Name, SystemPrompt string }
type ChatbotCreated struct{ Chatbot models.Chatbot }
type SelectFiles struct{ Files []models.SelectedFile }

// RemoveFile drops the selection entry at Index. A non-empty Path must match
// that entry's staged path, so a caller acting on an older view of the
// selection never removes a different file.
type RemoveFile struct {
	Index int
	Path  string
}

type UploadDocuments struct{}

// DocumentsUploaded reports an accepted upload; Poll selects the processing poll
type DocumentsUploaded struct{ Poll bool }

// ResumePolling restarts a poll that was alive when the session was saved
type ResumePolling struct{}

type StatusPolled struct {
	Generation int
	Attempt    int
	Status     models.StatusResponse
}
type PollFinished struct {
	Generation int
	Result     PollResult
}
type LoadDetails struct{}
type DetailsLoaded struct {
	Chatbot *models.Chatbot
	Status  *models.StatusResponse
}
type SendQuery struct{ Question string }
type QueryAnswered struct{ Question, Answer string }
type UpdateConfig struct{ SystemPrompt, Model string }
type ConfigSaved struct{ SystemPrompt, Model string }
type GoBack struct{}
type Finish struct{}
type Complete struct{}
type Abandon struct{}

// OperationFailed carries the error of a remote effect back into the session
type OperationFailed struct {
	Op  string
	Err error
}

func (GeneratePrompt) event()    {}
func (PromptGenerated) event()   {}
func (CreateChatbot) event()     {}
func (ChatbotCreated) event()    {}
func (SelectFiles) event()       {}
func (RemoveFile) event()        {}
func (UploadDocuments) event()   {}
func (DocumentsUploaded) event() {}
func (ResumePolling) event()     {}
func (StatusPolled) event()      {}
func (PollFinished) event()      {}
func (LoadDetails) event()       {}
func (DetailsLoaded) event()     {}
func (SendQuery) event()         {}
func (QueryAnswered) event()     {}
func (UpdateConfig) event()      {}
func (ConfigSaved) event()       {}
func (GoBack) event()            {}
func (Finish) event()            {}
func (Complete) event()          {}
func (Abandon) event()           {}
func (OperationFailed) event()   {}

// Effect is work Transition asks the orchestrator to perform
type Effect interface {
	effect()
}

type CallGeneratePrompt struct{ Instructions string }
type CallCreateChatbot struct{ Name, SystemPrompt string }
type CallUpload struct {
	ChatbotID string
	Files     []models.SelectedFile
}
type StartPolling struct {
	ChatbotID  string
	Generation int
}
type StopPolling struct{}
type CallFetchDetails struct{ ChatbotID string }
type CallQuery struct {
	ChatbotID string
	Question  string
	History   []models.ChatMessage
}
type CallUpdate struct{ ChatbotID, SystemPrompt, Model string }
type SaveSession struct{}
type ClearSession struct{}

func (CallGeneratePrompt) effect() {}
func (CallCreateChatbot) effect()  {}
func (CallUpload) effect()         {}
func (StartPolling) effect()       {}
func (StopPolling) effect()        {}
func (CallFetchDetails) effect()   {}
func (CallQuery) effect()          {}
func (CallUpdate) effect()         {}
func (SaveSession) effect()        {}
func (ClearSession) effect()       {}

// failure slot and fallback message per remote operation
var operationErrors = map[string]struct {
	slot     models.ErrorSlot
	fallback string
}{
	OpGeneratePrompt: {models.SlotInstructions, "Failed to generate system prompt"},
	OpCreateChatbot:  {models.SlotName, "Failed to create chatbot"},
	OpUpload:         {models.SlotFiles, "Failed to upload files"},
	OpPoll:           {models.SlotFiles, StatusCheckFailedMessage},
	OpLoadDetails:    {models.SlotDetails, "Failed to load chatbot details"},
	OpQuery:          {models.SlotQuery, "Failed to get response"},
	OpUpdateConfig:   {models.SlotConfig, "Failed to save changes"},
}

// Transition applies ev to s and returns the new session, the effects to run
// and the error to surface for this event. It performs no I/O; s is not modified.
func Transition(s models.WizardSession, ev Event) (models.WizardSession, []Effect, error) {
	next := s.Clone()

	switch e := ev.(type) {
	case GeneratePrompt:
		if err := expectStep(next, OpGeneratePrompt, models.StepInitialize); err != nil {
			return s, nil, err
		}
		if next.Pending == OpGeneratePrompt {
			return s, nil, ErrBusy
		}
		next.ClearErrors(models.SlotInstructions)
		next.SpecialInstructions = strings.TrimSpace(e.Instructions)
		next.Pending = OpGeneratePrompt
		return next, []Effect{CallGeneratePrompt{Instructions: next.SpecialInstructions}}, nil

	case PromptGenerated:
		next.Pending = ""
		next.SystemPrompt = e.Prompt
		return next, []Effect{SaveSession{}}, nil

	case CreateChatbot:
		if err := expectStep(next, OpCreateChatbot, models.StepInitialize); err != nil {
			return s, nil, err
		}
		if next.Pending == OpCreateChatbot {
			return s, nil, ErrBusy
		}
		next.ClearErrors(models.SlotName, models.SlotPrompt)
		name := strings.TrimSpace(e.Name)
		prompt := strings.TrimSpace(e.SystemPrompt)
		next.ChatbotName = name
		next.SystemPrompt = prompt

		var blank []models.ErrorSlot
		if name == "" {
			next.SetError(models.SlotName, "Chatbot name is required")
			blank = append(blank, models.SlotName)
		}
		if prompt == "" {
			next.SetError(models.SlotPrompt, "System prompt is required")
			blank = append(blank, models.SlotPrompt)
		}
		if len(blank) > 0 {
			return next, []Effect{SaveSession{}}, &ValidationError{Slots: blank, Message: "Please fill in all fields"}
		}

		next.Pending = OpCreateChatbot
		return next, []Effect{CallCreateChatbot{Name: name, SystemPrompt: prompt}}, nil

	case ChatbotCreated:
		next.Pending = ""
		next.ChatbotID = e.Chatbot.ID
		if e.Chatbot.Name != "" {
			next.ChatbotName = e.Chatbot.Name
		}
		if e.Chatbot.SystemPrompt != "" {
			next.SystemPrompt = e.Chatbot.SystemPrompt
		}
		next.Model = e.Chatbot.Model
		next.ChatbotStatus = e.Chatbot.Status
		next.DocumentCount = e.Chatbot.DocumentCount
		next.CurrentStep = models.StepDocuments
		return next, []Effect{SaveSession{}}, nil

	case SelectFiles:
		if err := expectStep(next, OpSelectFiles, models.StepDocuments); err != nil {
			return s, nil, err
		}
		next.ClearErrors(models.SlotFiles)
		accepted, rejected := FilterFiles(next.SelectedFiles, e.Files)
		next.SelectedFiles = append(next.SelectedFiles, accepted...)
		for _, r := range rejected {
			next.AddError(models.SlotFiles, r.Error())
		}
		if len(rejected) > 0 {
			return next, []Effect{SaveSession{}}, rejected
		}
		return next, []Effect{SaveSession{}}, nil

	case RemoveFile:
		if err := expectStep(next, OpSelectFiles, models.StepDocuments); err != nil {
			return s, nil, err
		}
		if next.Polling || next.Pending == OpUpload {
			return s, nil, ErrBusy
		}
		if e.Index < 0 || e.Index >= len(next.SelectedFiles) {
			return s, nil, &ValidationError{Slots: []models.ErrorSlot{models.SlotFiles}, Message: "No such file in the selection"}
		}
		if e.Path != "" && next.SelectedFiles[e.Index].Path != e.Path {
			return s, nil, &ValidationError{Slots: []models.ErrorSlot{models.SlotFiles}, Message: "The file selection changed, please try again"}
		}
		next.SelectedFiles = append(next.SelectedFiles[:e.Index], next.SelectedFiles[e.Index+1:]...)
		return next, []Effect{SaveSession{}}, nil

	case UploadDocuments:
		if err := expectStep(next, OpUpload, models.StepDocuments); err != nil {
			return s, nil, err
		}
		if !next.HasChatbot() {
			return s, nil, &StepError{Op: OpUpload, Step: next.CurrentStep}
		}
		if next.Pending == OpUpload || next.Polling {
			return s, nil, ErrBusy
		}
		next.ClearErrors(models.SlotFiles)
		if len(next.SelectedFiles) == 0 {
			next.SetError(models.SlotFiles, "Please select at least one file")
			return next, []Effect{SaveSession{}}, &UploadError{Message: "Please select at least one file"}
		}
		next.Pending = OpUpload
		files := append([]models.SelectedFile(nil), next.SelectedFiles...)
		return next, []Effect{CallUpload{ChatbotID: next.ChatbotID, Files: files}}, nil

	case DocumentsUploaded:
		next.Pending = ""
		if next.CurrentStep != models.StepDocuments {
			// user navigated away while the upload was in flight
			return next, []Effect{SaveSession{}}, nil
		}
		if !e.Poll {
			next.CurrentStep = models.StepTest
			return next, []Effect{SaveSession{}}, nil
		}
		next.ChatbotStatus = models.ChatbotProcessing
		next.Notice = "Upload complete! Processing documents..."
		return beginPolling(next)

	case ResumePolling:
		if !next.Polling || !next.HasChatbot() {
			return s, nil, nil
		}
		return beginPolling(next)

	case StatusPolled:
		if !next.Polling || e.Generation != next.PollGeneration {
			return s, nil, nil
		}
		next.PollAttempts = e.Attempt
		next.ChatbotStatus = e.Status.ChatbotStatus
		next.DocumentCount = e.Status.TotalDocuments
		return next, []Effect{SaveSession{}}, nil

	case PollFinished:
		if !next.Polling || e.Generation != next.PollGeneration {
			return s, nil, nil
		}
		if e.Result.Outcome == PollCancelled {
			// stopped without a verdict; Polling stays set so a resumed session restarts it
			return s, nil, nil
		}
		return finishPolling(next, e.Result)

	case LoadDetails:
		if !next.HasChatbot() {
			return s, nil, &StepError{Op: OpLoadDetails, Step: next.CurrentStep}
		}
		next.ClearErrors(models.SlotDetails)
		return next, []Effect{CallFetchDetails{ChatbotID: next.ChatbotID}}, nil

	case DetailsLoaded:
		if e.Chatbot != nil {
			next.SystemPrompt = e.Chatbot.SystemPrompt
			if e.Chatbot.Model != "" {
				next.Model = e.Chatbot.Model
			}
		}
		if e.Status != nil {
			next.DocumentCount = e.Status.TotalDocuments
			next.ChatbotStatus = e.Status.ChatbotStatus
		}
		return next, []Effect{SaveSession{}}, nil

	case SendQuery:
		if err := expectStep(next, OpQuery, models.StepTest); err != nil {
			return s, nil, err
		}
		if next.Pending == OpQuery {
			return s, nil, ErrBusy
		}
		next.ClearErrors(models.SlotQuery)
		question := strings.TrimSpace(e.Question)
		if question == "" {
			next.SetError(models.SlotQuery, "Please enter a question")
			return next, nil, &ValidationError{Slots: []models.ErrorSlot{models.SlotQuery}, Message: "Please enter a question"}
		}
		next.Pending = OpQuery
		history := append([]models.ChatMessage(nil), next.TestHistory...)
		return next, []Effect{CallQuery{ChatbotID: next.ChatbotID, Question: question, History: history}}, nil

	case QueryAnswered:
		next.Pending = ""
		next.TestHistory = append(next.TestHistory,
			models.ChatMessage{Role: models.RoleUser, Content: e.Question},
			models.ChatMessage{Role: models.RoleAssistant, Content: e.Answer},
		)
		return next, []Effect{SaveSession{}}, nil

	case UpdateConfig:
		if err := expectStep(next, OpUpdateConfig, models.StepTest); err != nil {
			return s, nil, err
		}
		if next.Pending == OpUpdateConfig {
			return s, nil, ErrBusy
		}
		next.ClearErrors(models.SlotConfig)
		next.Notice = ""
		prompt := strings.TrimSpace(e.SystemPrompt)
		if prompt == "" {
			next.SetError(models.SlotConfig, "System prompt cannot be empty")
			return next, nil, &ValidationError{Slots: []models.ErrorSlot{models.SlotConfig}, Message: "System prompt cannot be empty"}
		}
		next.Pending = OpUpdateConfig
		return next, []Effect{CallUpdate{ChatbotID: next.ChatbotID, SystemPrompt: prompt, Model: e.Model}}, nil

	case ConfigSaved:
		next.Pending = ""
		next.SystemPrompt = e.SystemPrompt
		next.Model = e.Model
		next.Notice = "Saved"
		return next, []Effect{SaveSession{}}, nil

	case OperationFailed:
		if next.Pending == e.Op {
			next.Pending = ""
		}
		info, ok := operationErrors[e.Op]
		if !ok {
			return next, []Effect{SaveSession{}}, e.Err
		}
		next.SetError(info.slot, UserMessage(e.Err, info.fallback))
		return next, []Effect{SaveSession{}}, e.Err

	case GoBack:
		var effects []Effect
		if next.Polling {
			next.Polling = false
			next.PollGeneration++
			next.Notice = ""
			effects = append(effects, StopPolling{})
		}
		if next.CurrentStep > models.StepInitialize {
			next.CurrentStep--
		}
		return next, append(effects, SaveSession{}), nil

	case Finish:
		if err := expectStep(next, OpFinish, models.StepTest); err != nil {
			return s, nil, err
		}
		next.CurrentStep = models.StepComplete
		return next, []Effect{SaveSession{}}, nil

	case Complete:
		if err := expectStep(next, OpComplete, models.StepComplete); err != nil {
			return s, nil, err
		}
		return next, []Effect{ClearSession{}}, nil

	case Abandon:
		var effects []Effect
		if next.Polling {
			effects = append(effects, StopPolling{})
		}
		fresh := models.NewWizardSession(s.ID)
		fresh.PollGeneration = next.PollGeneration + 1
		return fresh, append(effects, ClearSession{}), nil
	}

	return s, nil, nil
}

func expectStep(s models.WizardSession, op string, step models.WizardStep) error {
	if s.CurrentStep != step {
		return &StepError{Op: op, Step: s.CurrentStep}
	}
	return nil
}

func beginPolling(next models.WizardSession) (models.WizardSession, []Effect, error) {
	next.Polling = true
	next.PollGeneration++
	next.PollAttempts = 0
	return next, []Effect{
		SaveSession{},
		StartPolling{ChatbotID: next.ChatbotID, Generation: next.PollGeneration},
	}, nil
}

func finishPolling(next models.WizardSession, result PollResult) (models.WizardSession, []Effect, error) {
	next.Polling = false
	next.Notice = ""
	next.PollAttempts = result.Attempts
	if result.Status != nil {
		next.ChatbotStatus = result.Status.ChatbotStatus
		next.DocumentCount = result.Status.TotalDocuments
	}

	switch result.Outcome {
	case PollReady:
		if next.CurrentStep == models.StepDocuments {
			next.CurrentStep = models.StepTest
		}
		return next, []Effect{SaveSession{}}, nil

	case PollFailed:
		next.SetError(models.SlotFiles, ProcessingFailedMessage)
		return next, []Effect{SaveSession{}}, &RemoteError{Op: OpPoll, Message: ProcessingFailedMessage}

	case PollAborted:
		next.SetError(models.SlotFiles, StatusCheckFailedMessage)
		return next, []Effect{SaveSession{}}, result.Err

	case PollTimedOut:
		next.SetError(models.SlotFiles, ProcessingTimeoutMessage)
		err := result.Err
		if err == nil {
			err = &TimeoutError{Attempts: result.Attempts}
		}
		return next, []Effect{SaveSession{}}, err
	}

	return next, []Effect{SaveSession{}}, nil
}
