package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/plugvox/internal/api"
	"github.com/kalambet/plugvox/internal/cloud"
	"github.com/kalambet/plugvox/internal/config"
	"github.com/kalambet/plugvox/internal/control"
	"github.com/kalambet/plugvox/internal/credentials"
	"github.com/kalambet/plugvox/internal/device"
	"github.com/kalambet/plugvox/internal/intent"
	"github.com/kalambet/plugvox/internal/llm"
	"github.com/kalambet/plugvox/internal/logging"
	"github.com/kalambet/plugvox/internal/retry"
	"github.com/kalambet/plugvox/internal/transport"
)

const (
	shutdownTimeout   = 5 * time.Second
	transcribeTimeout = 2 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx, withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdin/stdout")
}

// gateway is the wired application graph.
type gateway struct {
	handler http.Handler
	mcp     *server.MCPServer
}

func buildGateway(cfg config.Config) (*gateway, error) {
	llmHTTP, err := transport.NewHTTPClient(cfg.Proxy.SocksAddr, transcribeTimeout)
	if err != nil {
		return nil, err
	}
	cloudHTTP, err := transport.NewHTTPClient("", cfg.Cloud.Timeout)
	if err != nil {
		return nil, err
	}

	llmClient := llm.New(llm.Options{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		IntentModel:     cfg.OpenAI.IntentModel,
		TranscribeModel: cfg.OpenAI.TranscribeModel,
		HTTPClient:      llmHTTP,
	})
	extractor := intent.NewExtractor(llmClient, cfg.Devices.DefaultName).
		WithPolicy(retry.LLMPolicy, cfg.OpenAI.Timeout)

	resolver := device.Resolver{
		DefaultName: cfg.Devices.DefaultName,
		TypeFilter:  cfg.Devices.TypeFilter,
	}
	executor := control.NewExecutor(cloud.New(cfg.Cloud.BaseURL, cloudHTTP), resolver, cfg.Cloud.Timeout)
	assistant := control.NewAssistant(extractor, executor)

	fallback := credentials.Record{Email: cfg.Cloud.Email, Password: cfg.Cloud.Password}

	handler := api.NewHandler(api.Deps{
		Executor:     executor,
		Assistant:    assistant,
		Transcriber:  llmClient,
		Store:        credentials.NewStore(),
		Signer:       credentials.NewSigner(cfg.Server.CookieSecret),
		Fallback:     fallback,
		WebhookToken: cfg.Server.WebhookToken,
	})
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Executor:  executor,
		Assistant: assistant,
		Creds:     fallback,
	})

	return &gateway{handler: handler, mcp: mcpSrv}, nil
}

func runServer(ctx context.Context, withMCP bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("plugvox starting", "version", version, "addr", cfg.Server.Addr())
	for _, w := range config.Warnings(cfg) {
		slog.Warn(w)
	}
	if cfg.Server.CookieSecret == "" {
		slog.Warn("server.cookie_secret not set; browser sessions end when the server restarts")
	}

	gw, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           gw.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			stdio := server.NewStdioServer(gw.mcp)
			if err := stdio.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
				return fmt.Errorf("mcp stdio server: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}
