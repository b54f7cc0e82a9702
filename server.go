package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"ragwizard/config"
	"ragwizard/controllers"
	"ragwizard/services"
	"ragwizard/utils"
)

// Server wraps the HTTP listener
type Server struct {
	httpServer *http.Server
	logger     utils.Logger
}

// NewServer wraps handler with CORS for the allowed origins
func NewServer(addr string, handler http.Handler, allowedOrigins []string, logger utils.Logger) *Server {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           c.Handler(handler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server", "Starting server", map[string]interface{}{"addr": s.httpServer.Addr})
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Server", "Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the wizard and dashboard over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := ensureDir(a.cfg.App.StagingDir); err != nil {
				return err
			}

			registry := services.NewWizardRegistry(a.store, a.backend, a.wizardOptions(), a.cfg.Session.TTL, a.logger)

			withDiscord, _ := cmd.Flags().GetBool("discord")
			var discord *services.DiscordService
			if withDiscord {
				discord = a.newDiscordService()
			}

			controller, err := controllers.NewController(registry, a.backend, discord, a.cfg.App.StagingDir, a.logger)
			if err != nil {
				return err
			}

			a.logger.Info("Server", "Chatbot wizard configured", map[string]interface{}{
				"backend_url":   a.cfg.Backend.URL,
				"session_store": a.cfg.Session.Store,
				"environment":   a.cfg.App.Environment,
			})

			server := NewServer(a.cfg.Addr(), controller.Routes(), a.cfg.App.CorsAllowedOrigins, a.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Run(gctx)
			})
			g.Go(func() error {
				if err := controller.StartServices(); err != nil {
					a.logger.Error("Server", "Failed to start Discord relay", map[string]interface{}{"error": err})
					return nil
				}
				<-gctx.Done()
				return controller.StopServices()
			})
			return g.Wait()
		},
	}
	cmd.Flags().Bool("discord", true, "also run the Discord relay when DISCORD_BOT_TOKEN is set")
	cmd.Flags().String("port", "", "listen port (PORT)")
	v.BindPFlag(config.KeyPort, cmd.Flags().Lookup("port"))
	return cmd
}
