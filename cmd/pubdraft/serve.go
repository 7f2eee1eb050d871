package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/pubdraft"
	"github.com/eringen/pubdraft/internal/config"
	"github.com/eringen/pubdraft/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the pubdraft server",
		Long: `Start the HTTP server. The config file is watched and log level
changes are applied without a restart.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

// appConfig maps the file configuration onto the server's.
func appConfig(cfg *config.Config) pubdraft.Config {
	return pubdraft.Config{
		Name:             cfg.Server.Name,
		URL:              cfg.Server.URL,
		Description:      cfg.Server.Description,
		Addr:             cfg.Server.Addr,
		DatabasePath:     cfg.Server.DatabasePath,
		UploadDir:        cfg.Server.UploadDir,
		SessionSecret:    cfg.Server.SessionSecret,
		CookieSecure:     cfg.Server.CookieSecure,
		UploadsPerMinute: cfg.Server.UploadsPerMin,
		AutosaveSchedule: cfg.Editor.AutosaveSchedule,
		HistoryLimit:     cfg.Editor.HistoryLimit,
		StatusTTL:        cfg.Editor.StatusTTL,
		IdleTimeout:      cfg.Editor.IdleTimeout,
		PasteSizeLimit:   cfg.Editor.PasteSizeLimit,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Path:   cfg.Log.Path,
	})
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(configPath); err == nil {
		w := config.NewWatcher(configPath, cfg, log.Logger)
		w.OnChange(func(c *config.Config) {
			if err := logging.SetLevel(c.Log.Level); err != nil {
				log.Warn().Err(err).Msg("log level not changed")
				return
			}
			log.Info().Str("level", c.Log.Level).Msg("config reloaded")
		})
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Warn().Err(err).Str("path", configPath).Msg("config watcher stopped")
			}
		}()
	}

	app := pubdraft.New(appConfig(cfg), pubdraft.WithLogger(log.Logger))
	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		app.Close()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errc
}
