package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/gitdub/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/gitdub/pkg/controller/github"
	controller "github.com/m-mizutani/gitdub/pkg/controller/http"
	"github.com/m-mizutani/gitdub/pkg/infra/command"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		fileCfg   config.File
		serverCfg config.Server
		githubCfg config.GitHub
		sentryCfg config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, fileCfg.Flags()...)
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			cfg, err := fileCfg.Load()
			if err != nil {
				return err
			}

			flush, err := sentryCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer flush()

			if _, err := os.Stat(cfg.GitDub.Directory); errors.Is(err, os.ErrNotExist) {
				logger.Info("Creating working directory", slog.String("directory", cfg.GitDub.Directory))
			}
			if err := os.MkdirAll(cfg.GitDub.Directory, 0o755); err != nil {
				return goerr.Wrap(err, "failed to create working directory",
					goerr.V("directory", cfg.GitDub.Directory))
			}

			svc, err := newService(cfg, command.New())
			if err != nil {
				return err
			}
			if err := command.LookPath(svc.executables...); err != nil {
				return goerr.Wrap(err, "required program is not installed")
			}

			addr := serverCfg.ListenAddr(cfg)
			logger.Info("Starting gitdub server",
				slog.String("addr", addr),
				slog.String("directory", cfg.GitDub.Directory),
				slog.Int("rules", len(cfg.GitHub)),
				slog.Bool("silent_init", cfg.GitDub.SilentInit),
				slog.Bool("tls", cfg.GitDub.SSL.Enable),
				slog.Any("github", githubCfg),
			)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				githubcontroller.NewEventProcessor(svc.dispatch),
				controller.WithAddr(addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
				controller.WithAllowedSources(cfg.GitDub.AllowedSources),
				controller.WithTrustProxy(serverCfg.TrustProxy),
				controller.WithAsync(serverCfg.AsyncDispatch),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", addr))
				var err error
				if cfg.GitDub.SSL.Enable {
					err = server.ListenAndServeTLS(cfg.GitDub.SSL.Cert, cfg.GitDub.SSL.Key)
				} else {
					err = server.ListenAndServe()
				}
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return goerr.Wrap(err, "HTTP server error", goerr.V("addr", addr))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
