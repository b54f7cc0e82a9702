package terminal

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"ragwizard/models"
	"ragwizard/services"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed)
	noticeColor = color.New(color.FgGreen)
	dimColor    = color.New(color.Faint)
)

// Printer writes wizard and dashboard output
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Header prints the step title and progress
func (p *Printer) Header(s models.WizardSession) {
	headerColor.Fprintf(p.out, "\n%s - Step %d of 4\n", s.CurrentStep.Title(), s.CurrentStep)
}

// Errors prints every non-empty error slot in a stable order
func (p *Printer) Errors(s models.WizardSession) {
	slots := make([]string, 0, len(s.Errors))
	for slot := range s.Errors {
		slots = append(slots, string(slot))
	}
	sort.Strings(slots)

	for _, slot := range slots {
		for _, msg := range s.Errors[models.ErrorSlot(slot)] {
			errorColor.Fprintf(p.out, "  ✗ %s\n", msg)
		}
	}
}

// Notice prints the transient notice, if any
func (p *Printer) Notice(s models.WizardSession) {
	if s.Notice != "" {
		noticeColor.Fprintf(p.out, "  %s\n", s.Notice)
	}
}

// Error prints a single message
func (p *Printer) Error(message string) {
	errorColor.Fprintf(p.out, "  ✗ %s\n", message)
}

// Info prints a plain line
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Files lists the selection with sizes
func (p *Printer) Files(files []models.SelectedFile) {
	if len(files) == 0 {
		dimColor.Fprintln(p.out, "  No files selected")
		return
	}
	for i, f := range files {
		fmt.Fprintf(p.out, "  %d. %s (%s)\n", i+1, f.Name, services.FormatFileSize(f.Size))
	}
}

// History prints the test conversation
func (p *Printer) History(history []models.ChatMessage) {
	for _, msg := range history {
		if msg.Role == models.RoleAssistant {
			noticeColor.Fprintf(p.out, "  bot: %s\n", msg.Content)
		} else {
			fmt.Fprintf(p.out, "  you: %s\n", msg.Content)
		}
	}
}

// Summary prints the read-only step 4 overview
func (p *Printer) Summary(s models.WizardSession) {
	fmt.Fprintf(p.out, "  Name:      %s\n", s.ChatbotName)
	fmt.Fprintf(p.out, "  ID:        %s\n", s.ChatbotID)
	fmt.Fprintf(p.out, "  Files:     %d uploaded\n", len(s.SelectedFiles))
	fmt.Fprintf(p.out, "  Documents: %d processed\n", s.DocumentCount)
	fmt.Fprintf(p.out, "  Status:    %s\n", s.ChatbotStatus.Label())
}

// Chatbots prints the dashboard list
func (p *Printer) Chatbots(list services.ChatbotList) {
	if len(list.Filtered) == 0 {
		if strings.TrimSpace(list.Query) != "" {
			dimColor.Fprintf(p.out, "No chatbots match %q.\n", list.Query)
		} else {
			dimColor.Fprintln(p.out, "No chatbots yet.")
		}
		return
	}

	headerColor.Fprintf(p.out, "%d of %d chatbots\n", len(list.Filtered), len(list.All))
	for _, c := range list.Filtered {
		label := c.Status.Label()
		statusColor := noticeColor
		if c.Status == models.ChatbotError {
			statusColor = errorColor
		}
		fmt.Fprintf(p.out, "\n%s  ", c.Name)
		statusColor.Fprintf(p.out, "[%s]\n", label)
		fmt.Fprintf(p.out, "  id: %s\n", c.ID)
		fmt.Fprintf(p.out, "  %d document(s), created %s\n", c.DocumentCount, c.CreatedDate())
		if c.SystemPrompt != "" {
			dimColor.Fprintf(p.out, "  %s\n", truncate(c.SystemPrompt, 100))
		}
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
