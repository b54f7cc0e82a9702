package terminal

import (
	"context"
	"strings"

	"ragwizard/models"
	"ragwizard/services"
)

// Chat runs a question loop against a finished chatbot until the user sends
// an empty line or /exit.
func Chat(ctx context.Context, driver PromptDriver, querier services.ChatbotQuerier, printer *Printer, chatbotID string) error {
	var history []models.ChatMessage
	printer.Info("Chatting with %s. Send an empty line or /exit to leave.", chatbotID)

	for {
		question, err := driver.Input(ctx, InputConfig{Message: "You"})
		if err != nil {
			return err
		}
		question = strings.TrimSpace(question)
		if question == "" || question == "/exit" {
			return nil
		}

		answer, err := querier.Query(ctx, chatbotID, question, history)
		if err != nil {
			printer.Error(services.UserMessage(err, "Failed to get response"))
			continue
		}

		turn := []models.ChatMessage{
			{Role: models.RoleUser, Content: question},
			{Role: models.RoleAssistant, Content: answer},
		}
		printer.History(turn[1:])
		history = append(history, turn...)
	}
}
