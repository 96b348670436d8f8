package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonwraymond/entityindex/internal/version"
	"github.com/jonwraymond/entityindex/metrics"
	"github.com/jonwraymond/entityindex/server"
)

type serveOptions struct {
	addr           string
	mcpStdio       bool
	rebuildIfStale bool
}

func newServeCmd(global *globalOptions) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP, or MCP over stdio",
		Long: `Serve the search API.

By default an HTTP server exposes /search, /count, /rebuild, /index,
/healthz, /metrics and a streamable MCP endpoint at /mcp.

With --mcp-stdio the MCP tools are served over stdin/stdout instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides http.addr)")
	cmd.Flags().BoolVar(&opts.mcpStdio, "mcp-stdio", false, "Serve MCP over stdio instead of HTTP")
	cmd.Flags().BoolVar(&opts.rebuildIfStale, "rebuild-if-stale", false, "Rebuild the index at startup when the entity configuration changed")

	return cmd
}

func runServe(ctx context.Context, global *globalOptions, opts serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, global)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	if opts.rebuildIfStale {
		stale, err := a.eng.Stale()
		if err != nil {
			return err
		}
		if stale {
			logger.Info("index is stale, rebuilding")
			if _, err := a.eng.Rebuild(ctx); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}
		}
	}

	mcpServer := server.NewMCPServer(a.eng, &mcp.Implementation{Name: "entityindex", Version: version.Version})

	if opts.mcpStdio {
		logger.Info("serving MCP over stdio")
		err := mcpServer.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	metrics.Register(prometheus.DefaultRegisterer)

	addr := a.cfg.HTTP.Addr
	if opts.addr != "" {
		addr = opts.addr
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewHTTPHandler(a.eng, mcpServer, logger),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("version", version.Version),
			zap.String("commit", version.Commit),
			zap.Int("entity_types", a.reg.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}
