package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/kalambet/gemsearch/internal/api"
	"github.com/kalambet/gemsearch/internal/config"
	"github.com/kalambet/gemsearch/internal/filesync"
	"github.com/kalambet/gemsearch/internal/gemini"
	"github.com/kalambet/gemsearch/internal/query"
	"github.com/kalambet/gemsearch/internal/session"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web UI with the upload and chat endpoints",
	Long: `Serve the web UI with the upload and chat endpoints.

The browser supplies the Gemini API key with every request, so no key needs
to be configured for this command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		return runServer(cmd.Context(), cfg, serveHost)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context(), appConfig)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "interface to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (default from config)")
}

func runServer(ctx context.Context, cfg config.Config, host string) error {
	fmt.Fprintf(stderr, "gemsearch version %s\n", version)

	var sessions session.Store
	store, err := openStore(cfg)
	if err != nil {
		printWarning("Sessions disabled: %v", err)
	} else {
		sessions = store
		defer func() {
			if err := store.Close(); err != nil {
				slog.Warn("closing storage", "error", err)
			}
		}()
	}

	handler := api.NewHandler(api.Deps{
		Providers: gemini.NewFactory(gemini.Options{
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		}),
		Sessions:       sessions,
		Logger:         slog.Default(),
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})

	addr := net.JoinHostPort(host, fmt.Sprint(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		printSuccess("gemsearch listening on http://%s", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runMCP serves the MCP tools over stdin/stdout until ctx is done.
// Nothing else may write to stdout meanwhile.
func runMCP(ctx context.Context, cfg config.Config) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}
	p, err := newProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating Gemini client: %w", err)
	}

	deps := api.MCPDeps{
		Files:  p,
		Syncer: filesync.New(p, mcpSyncOptions(cfg)),
		Engine: query.New(p, slog.Default()),
	}
	if store, err := openStore(cfg); err != nil {
		slog.Warn("sessions resource disabled", "error", err)
	} else {
		deps.Sessions = store
		defer store.Close()
	}

	mcpSrv := api.NewMCPServer(deps, version)
	slog.Info("MCP server started (stdio transport)")
	err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}

func mcpSyncOptions(cfg config.Config) filesync.Options {
	opts := syncOptions(cfg)
	opts.Progress = nil
	return opts
}
