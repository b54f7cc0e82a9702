package terminal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"ragwizard/models"
	"ragwizard/services"
)

// Next is where the user chose to go after the summary step
type Next int

const (
	NextNone Next = iota
	NextChat
	NextDashboard
)

// Wizard drives an Orchestrator from terminal prompts
type Wizard struct {
	driver  PromptDriver
	orch    *services.Orchestrator
	printer *Printer

	mu          sync.Mutex
	lastAttempt int
	loadedFor   string
}

// NewWizard attaches to orch and reports poll progress as it arrives
func NewWizard(driver PromptDriver, orch *services.Orchestrator, printer *Printer) *Wizard {
	w := &Wizard{driver: driver, orch: orch, printer: printer}
	orch.OnChange(w.onChange)
	return w
}

func (w *Wizard) onChange(s models.WizardSession) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !s.Polling {
		w.lastAttempt = 0
		return
	}
	if s.PollAttempts > w.lastAttempt {
		w.lastAttempt = s.PollAttempts
		dimColor.Fprintf(w.printer.out, "  processing... check %d (%s)\n", s.PollAttempts, s.ChatbotStatus.Label())
	}
}

// Run walks the steps until the summary is confirmed. Only prompt failures
// (including ErrAborted) end it early; wizard errors are printed and the
// step is offered again.
func (w *Wizard) Run(ctx context.Context) (models.WizardSession, Next, error) {
	for {
		s := w.orch.Session()
		w.printer.Header(s)

		var err error
		switch s.CurrentStep {
		case models.StepInitialize:
			err = w.initialize(ctx, s)
		case models.StepDocuments:
			err = w.documents(ctx, s)
		case models.StepTest:
			err = w.test(ctx, s)
		case models.StepComplete:
			return w.complete(ctx, s)
		}
		if err != nil {
			return w.orch.Session(), NextNone, err
		}
	}
}

// report prints the outcome of an action
func (w *Wizard) report(s models.WizardSession, err error) {
	w.printer.Notice(s)
	if len(s.Errors) > 0 {
		w.printer.Errors(s)
		return
	}
	if err != nil {
		w.printer.Error(services.UserMessage(err, "Something went wrong"))
	}
}

func (w *Wizard) initialize(ctx context.Context, s models.WizardSession) error {
	name, err := w.driver.Input(ctx, InputConfig{
		Message: "Chatbot name",
		Default: s.ChatbotName,
		Help:    "e.g., Customer Support Bot",
	})
	if err != nil {
		return err
	}

	generate, err := w.driver.Confirm(ctx, ConfirmConfig{
		Message: "Generate the system prompt with AI?",
		Default: s.SystemPrompt == "",
	})
	if err != nil {
		return err
	}

	prompt := s.SystemPrompt
	if generate {
		instructions, err := w.driver.TextArea(ctx, TextAreaConfig{
			Message: "Special instructions (optional)",
			Default: s.SpecialInstructions,
		})
		if err != nil {
			return err
		}
		w.printer.Info("Generating system prompt...")
		session, genErr := w.orch.GeneratePrompt(ctx, instructions)
		if genErr != nil {
			w.report(session, genErr)
		} else {
			prompt = session.SystemPrompt
		}
	}

	prompt, err = w.driver.TextArea(ctx, TextAreaConfig{
		Message: "System prompt",
		Default: prompt,
	})
	if err != nil {
		return err
	}

	session, err := w.orch.CreateChatbot(ctx, name, prompt)
	w.report(session, err)
	return nil
}

func (w *Wizard) documents(ctx context.Context, s models.WizardSession) error {
	w.printer.Info("Chatbot: %s", s.ChatbotName)
	w.printer.Files(s.SelectedFiles)

	idx, err := w.driver.Select(ctx, SelectConfig{
		Message: "Documents",
		Options: []string{"Add files", "Remove a file", "Upload and continue", "Back"},
	})
	if err != nil {
		return err
	}

	switch idx {
	case 0:
		raw, err := w.driver.Input(ctx, InputConfig{
			Message: "File paths (comma separated)",
			Help:    "Supports PDF, DOCX, and TXT files. Up to 10 files, 50MB each.",
		})
		if err != nil {
			return err
		}
		files, problems := statFiles(raw)
		for _, p := range problems {
			w.printer.Error(p)
		}
		if len(files) > 0 {
			session, err := w.orch.SelectFiles(ctx, files)
			w.report(session, err)
		}

	case 1:
		if len(s.SelectedFiles) == 0 {
			w.printer.Info("Nothing to remove")
			return nil
		}
		options := make([]string, 0, len(s.SelectedFiles)+1)
		for _, f := range s.SelectedFiles {
			options = append(options, f.Name)
		}
		options = append(options, "Cancel")
		pick, err := w.driver.Select(ctx, SelectConfig{Message: "Remove which file?", Options: options})
		if err != nil {
			return err
		}
		if pick >= 0 && pick < len(s.SelectedFiles) {
			session, err := w.orch.RemoveFile(ctx, pick, s.SelectedFiles[pick].Path)
			w.report(session, err)
		}

	case 2:
		w.printer.Info("Uploading %d file(s)...", len(s.SelectedFiles))
		session, err := w.orch.Upload(ctx)
		w.report(session, err)
		if err == nil && session.Polling {
			session, err = w.waitForPoll(ctx)
			if err != nil {
				return err
			}
			w.report(session, nil)
		}

	case 3:
		session, err := w.orch.Back(ctx)
		w.report(session, err)
	}
	return nil
}

// waitForPoll blocks until processing settles. Cancelling ctx stops the poll.
func (w *Wizard) waitForPoll(ctx context.Context) (models.WizardSession, error) {
	done := make(chan models.WizardSession, 1)
	go func() {
		done <- w.orch.WaitForPoll()
	}()

	select {
	case s := <-done:
		return s, nil
	case <-ctx.Done():
		w.orch.Close()
		return w.orch.Session(), ctx.Err()
	}
}

func (w *Wizard) test(ctx context.Context, s models.WizardSession) error {
	if w.loadedFor != s.ChatbotID {
		w.loadedFor = s.ChatbotID
		session, err := w.orch.LoadDetails(ctx)
		if err != nil {
			w.report(session, err)
		}
		s = session
	}

	w.printer.Info("Chatbot: %s (%d document(s), %s)", s.ChatbotName, s.DocumentCount, s.ChatbotStatus.Label())
	w.printer.History(s.TestHistory)

	idx, err := w.driver.Select(ctx, SelectConfig{
		Message: "Test your chatbot",
		Options: []string{"Ask a question", "Edit configuration", "Back", "Continue"},
	})
	if err != nil {
		return err
	}

	switch idx {
	case 0:
		question, err := w.driver.Input(ctx, InputConfig{Message: "What would you like to ask?"})
		if err != nil {
			return err
		}
		session, err := w.orch.Query(ctx, question)
		if err == nil {
			w.printer.History(session.TestHistory[len(session.TestHistory)-2:])
		}
		w.report(session, err)

	case 1:
		prompt, err := w.driver.TextArea(ctx, TextAreaConfig{Message: "System prompt", Default: s.SystemPrompt})
		if err != nil {
			return err
		}
		model, err := w.driver.Input(ctx, InputConfig{Message: "Model", Default: s.Model})
		if err != nil {
			return err
		}
		session, err := w.orch.UpdateConfig(ctx, prompt, model)
		w.report(session, err)

	case 2:
		session, err := w.orch.Back(ctx)
		w.report(session, err)

	case 3:
		session, err := w.orch.Finish(ctx)
		w.report(session, err)
	}
	return nil
}

func (w *Wizard) complete(ctx context.Context, s models.WizardSession) (models.WizardSession, Next, error) {
	w.printer.Summary(s)

	var options []string
	var targets []Next
	if s.CanChat() {
		options = append(options, "Start chatting")
		targets = append(targets, NextChat)
	}
	options = append(options, "Go to dashboard", "Done")
	targets = append(targets, NextDashboard, NextNone)

	idx, err := w.driver.Select(ctx, SelectConfig{Message: "Chatbot ready to deploy!", Options: options})
	if err != nil {
		return s, NextNone, err
	}
	next := NextNone
	if idx >= 0 && idx < len(targets) {
		next = targets[idx]
	}

	session, err := w.orch.Complete(ctx)
	if err != nil {
		return session, NextNone, err
	}
	return session, next, nil
}

// statFiles turns a comma separated list of paths into selected files
func statFiles(raw string) ([]models.SelectedFile, []string) {
	var files []models.SelectedFile
	var problems []string
	for _, part := range strings.Split(raw, ",") {
		path := strings.TrimSpace(part)
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			problems = append(problems, errors.Wrapf(err, "invalid path %s", path).Error())
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			problems = append(problems, "Cannot read "+path)
			continue
		}
		if info.IsDir() {
			problems = append(problems, path+" is a directory")
			continue
		}
		files = append(files, models.SelectedFile{Name: filepath.Base(abs), Size: info.Size(), Path: abs})
	}
	return files, problems
}
