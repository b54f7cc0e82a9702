package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ragwizard/config"
	"ragwizard/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.NewViper()

	root := &cobra.Command{
		Use:           "ragwizard",
		Short:         "Create, test and manage RAG chatbots",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if loaded := utils.LoadEnvWithFallback(); loaded == "" {
				fmt.Fprintln(os.Stderr, "No .env file found, using environment variables and defaults")
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("backend-url", "", "chatbot backend base URL (BACKEND_URL)")
	flags.String("log-file", "", "rotated JSON log file (LOG_FILE_PATH)")
	flags.String("session-store", "", "memory or redis (SESSION_STORE)")
	flags.String("redis-url", "", "redis URL for the redis session store (REDIS_URL)")
	flags.Duration("poll-interval", 0, "processing status poll interval (POLL_INTERVAL)")
	flags.Int("poll-max-attempts", 0, "maximum processing status polls (POLL_MAX_ATTEMPTS)")
	v.BindPFlag(config.KeyBackendURL, flags.Lookup("backend-url"))
	v.BindPFlag(config.KeyLogFilePath, flags.Lookup("log-file"))
	v.BindPFlag(config.KeySessionStore, flags.Lookup("session-store"))
	v.BindPFlag(config.KeyRedisURL, flags.Lookup("redis-url"))
	v.BindPFlag(config.KeyPollInterval, flags.Lookup("poll-interval"))
	v.BindPFlag(config.KeyPollMaxAttempts, flags.Lookup("poll-max-attempts"))

	root.AddCommand(
		newServeCommand(v),
		newCreateCommand(v),
		newListCommand(v),
		newDeleteCommand(v),
		newDiscordCommand(v),
	)
	return root
}
