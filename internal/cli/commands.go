// Package cli holds the finchat subcommands and the terminal chat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gwi.com/finance-chat/internal/api"
	"gwi.com/finance-chat/internal/auth"
	"gwi.com/finance-chat/internal/config"
	"gwi.com/finance-chat/internal/core"
	"gwi.com/finance-chat/internal/observability"
	"gwi.com/finance-chat/internal/store"
	"gwi.com/finance-chat/internal/telemetry"
)

// app is the wiring shared by every subcommand that touches storage.
type app struct {
	cfg      *config.Config
	kv       store.KV
	svc      *core.ChatService
	shutdown func()
}

func newApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	observability.Setup(logOut, cfg.LogLevel)

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	kv, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		shutdown()
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}

	svc := core.NewChatService(kv, core.WithSuggestionDelay(cfg.SuggestionDelay))
	return &app{cfg: cfg, kv: kv, svc: svc, shutdown: shutdown}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		observability.Logger().Warn("failed to close storage", "error", err)
	}
	a.shutdown()
}

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides FINCHAT_HTTP_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.cfg.RequireJWTSecret(); err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		a.cfg.HTTPPort = port
	}

	a.svc.Knowledge().EnsureSeeded(ctx)

	router := api.NewRouter(api.NewAPIHandler(a.svc, a.cfg.JWTSecret))
	serverAddr := fmt.Sprintf(":%s", a.cfg.HTTPPort)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: /api/chats/events streams for as long as the client stays
		IdleTimeout: 120 * time.Second,
	}

	logger := observability.Logger()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", serverAddr, "storage", a.cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
	case <-quit:
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited gracefully")
	return nil
}

func ChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the finance assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// logs go to stderr so they do not interleave with the conversation
			a, err := newApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			a.svc.Knowledge().EnsureSeeded(ctx)
			as, _ := cmd.Flags().GetString("as")
			repl := NewREPL(ctx, a.svc, store.Identity(as), cmd.OutOrStdout())
			return repl.Run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().String("as", "", "Identity to sign in as (empty chats anonymously)")
	return cmd
}

func SeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the knowledge base to storage",
		Long: `Without --file, writes the built-in knowledge base when storage holds none
or an outdated copy. With --file, stores the given catalogue as an override
that is served instead of the built-in one until --reset removes it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if reset, _ := cmd.Flags().GetBool("reset"); reset {
				if err := a.svc.Knowledge().ClearOverride(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "imported catalogue removed")
			}

			file, _ := cmd.Flags().GetString("file")
			if file == "" {
				a.svc.Knowledge().EnsureSeeded(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "knowledge base ready (%d entries)\n", len(a.svc.Knowledge().Load(ctx)))
				return nil
			}

			n, err := a.svc.Knowledge().Import(ctx, file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries from %s\n", n, file)
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Catalogue JSON file to import")
	cmd.Flags().Bool("reset", false, "Remove a previously imported catalogue")
	return cmd
}

func TokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <identity>",
		Short: "Mint a development bearer token for an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			token, err := auth.GenerateJWT(cfg.JWTSecret, store.Identity(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
