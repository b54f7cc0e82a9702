package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ragwizard/models"
	"ragwizard/services"
	"ragwizard/terminal"
)

func newCreateCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a chatbot with the interactive wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			sessionID, _ := cmd.Flags().GetString("session")
			session := models.NewWizardSession(uuid.NewString())
			if sessionID != "" {
				stored, err := a.store.Load(ctx, sessionID)
				if err != nil && !errors.Is(err, services.ErrSessionNotFound) {
					return err
				}
				if err == nil {
					session = stored
				} else {
					session = models.NewWizardSession(sessionID)
				}
			}

			orch := services.NewOrchestrator(session, a.backend, a.store, a.wizardOptions(), a.logger)
			defer orch.Close()

			printer := terminal.NewPrinter(os.Stdout)
			driver := terminal.NewSurveyDriver()
			wizard := terminal.NewWizard(driver, orch, printer)
			if session.Polling {
				orch.Dispatch(ctx, services.ResumePolling{})
			}

			printer.Info("Wizard session %s (resume with --session %s)", session.ID, session.ID)
			final, next, err := wizard.Run(ctx)
			if errors.Is(err, terminal.ErrAborted) {
				printer.Info("Wizard paused on step %d. Resume with --session %s", final.CurrentStep, final.ID)
				return nil
			}
			if err != nil {
				return err
			}

			switch next {
			case terminal.NextChat:
				return terminal.Chat(ctx, driver, a.backend, printer, final.ChatbotID)
			case terminal.NextDashboard:
				dashboard := services.NewDashboard(a.backend, a.logger)
				list, err := dashboard.Refresh(ctx)
				if err != nil {
					printer.Error(services.UserMessage(err, "Failed to load chatbots"))
					return nil
				}
				printer.Chatbots(list)
			}
			return nil
		},
	}
	cmd.Flags().String("session", "", "resume a stored wizard session")
	return cmd
}

func newListCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List chatbots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			filter, _ := cmd.Flags().GetString("filter")
			dashboard := services.NewDashboard(a.backend, a.logger)
			dashboard.Filter(filter)
			list, err := dashboard.Refresh(ctx)
			if err != nil {
				return errors.New(services.UserMessage(err, "Failed to load chatbots"))
			}

			terminal.NewPrinter(os.Stdout).Chatbots(list)
			return nil
		},
	}
	cmd.Flags().StringP("filter", "f", "", "only show chatbots whose name or system prompt contains this text")
	return cmd
}

func newDeleteCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <chatbot-id>",
		Short: "Delete a chatbot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			printer := terminal.NewPrinter(os.Stdout)
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				ok, err := terminal.NewSurveyDriver().Confirm(ctx, terminal.ConfirmConfig{
					Message: fmt.Sprintf("Delete chatbot %s?", args[0]),
				})
				if err != nil || !ok {
					return err
				}
			}

			filter, _ := cmd.Flags().GetString("filter")
			dashboard := services.NewDashboard(a.backend, a.logger)
			dashboard.Filter(filter)
			if _, err := dashboard.Refresh(ctx); err != nil {
				printer.Error(services.UserMessage(err, "Failed to load chatbots"))
			}

			list, err := dashboard.Delete(ctx, args[0])
			if err != nil {
				return errors.New(services.UserMessage(err, "Failed to delete chatbot"))
			}
			printer.Info("Deleted %s", args[0])
			printer.Chatbots(list)
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().StringP("filter", "f", "", "filter the list shown after deleting")
	return cmd
}

func newDiscordCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "discord",
		Short: "Run only the Discord relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			discord := a.newDiscordService()
			if err := discord.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			return discord.Stop()
		},
	}
}
