package main

import (
	"context"
	"os"

	"github.com/spf13/viper"

	"ragwizard/config"
	"ragwizard/services"
	"ragwizard/utils"
)

// app holds the services shared by every command
type app struct {
	cfg     *config.Config
	logger  utils.Logger
	backend *services.BackendClient
	store   services.SessionStore
	closers []func() error
}

// newApp resolves configuration and builds the backend client and session
// store. Interactive commands log to the file only.
func newApp(ctx context.Context, v *viper.Viper, interactive bool) (*app, error) {
	cfg := config.Load(v)

	var logger *utils.ZapLogger
	if interactive {
		logger = utils.NewFileLogger(cfg.App.LogFilePath)
	} else {
		logger = utils.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		backend: services.NewBackendClient(cfg.Backend.URL, cfg.Backend.Timeout, logger),
	}

	store, err := a.newSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store
	return a, nil
}

func (a *app) newSessionStore(ctx context.Context) (services.SessionStore, error) {
	switch a.cfg.Session.Store {
	case "redis":
		store, err := services.NewRedisSessionStore(a.cfg.Session.RedisURL, a.cfg.Session.TTL)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			a.logger.Warn("App", "Redis session store unreachable, falling back to memory", map[string]interface{}{
				"redis_url": a.cfg.Session.RedisURL,
				"error":     err.Error(),
			})
			store.Close()
			return services.NewMemorySessionStore(a.cfg.Session.TTL), nil
		}
		a.closers = append(a.closers, store.Close)
		a.logger.Info("App", "Using redis session store", map[string]interface{}{"redis_url": a.cfg.Session.RedisURL})
		return store, nil
	default:
		return services.NewMemorySessionStore(a.cfg.Session.TTL), nil
	}
}

func (a *app) wizardOptions() services.WizardOptions {
	return services.WizardOptions{
		PollInterval:      a.cfg.Wizard.PollInterval,
		PollMaxAttempts:   a.cfg.Wizard.PollMaxAttempts,
		WaitForProcessing: a.cfg.Wizard.WaitForProcessing,
	}
}

func (a *app) newDiscordService() *services.DiscordService {
	return services.NewDiscordService(a.backend, a.cfg.Discord.Token, a.cfg.Discord.CommandPrefix, a.cfg.Discord.ChatbotID, a.logger)
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("App", "Error during shutdown", map[string]interface{}{"error": err.Error()})
		}
	}
	a.logger.Sync()
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
