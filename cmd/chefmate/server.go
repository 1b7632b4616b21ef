package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/chefmate/internal/agent"
	"github.com/kalambet/chefmate/internal/api"
	"github.com/kalambet/chefmate/internal/config"
	"github.com/kalambet/chefmate/internal/conversation"
	"github.com/kalambet/chefmate/internal/engine"
	"github.com/kalambet/chefmate/internal/ingest"
	"github.com/kalambet/chefmate/internal/memory"
	"github.com/kalambet/chefmate/internal/profile"
	"github.com/kalambet/chefmate/internal/retrieval"
	"github.com/kalambet/chefmate/internal/session"
	"github.com/kalambet/chefmate/internal/storage"
)

// backfillBatch bounds how many unembedded memories are indexed at startup.
const backfillBatch = 500

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chefmate server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running chefmate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chefmate system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "chefmate.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

// engineSetup is the inference engine chosen for cfg with its models.
type engineSetup struct {
	engine     engine.Engine
	backend    string
	chatModel  string
	embedModel string
}

func detectEngine(cfg config.Config) (engineSetup, error) {
	eng, err := engine.Detect(engine.DetectConfig{
		Backend:       cfg.Engine.Backend,
		OllamaBaseURL: cfg.Ollama.BaseURL,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
	})
	if err != nil {
		return engineSetup{}, fmt.Errorf("detecting inference engine: %w", err)
	}
	backend := engine.ResolveBackend(cfg.Engine.Backend, cfg.OpenAI.APIKey)
	chat, embed := cfg.Models(backend)
	return engineSetup{engine: eng, backend: backend, chatModel: chat, embedModel: embed}, nil
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "chefmate version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("chefmate is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("chefmate is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	es, err := detectEngine(cfg)
	if err != nil {
		return err
	}
	slog.Info("inference engine selected", "backend", es.backend, "chat_model", es.chatModel, "embed_model", es.embedModel)
	if err := engine.EnsureReady(ctx, es.engine, es.chatModel, es.embedModel, os.Stderr); err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Memory and profile engine.
	retriever := retrieval.NewRetriever(
		retrieval.NewEmbedder(es.engine, es.embedModel),
		retrieval.NewSQLiteStore(store.DB()),
	)
	ledger := memory.NewSQLiteLedger(store, retriever)
	profiles := profile.NewManager(ledger, profile.DefaultPlanner(), cfg.Profile.ConfidenceThreshold)

	// Conversation agent.
	threadAgent := agent.NewThreadAgent(store, es.engine, es.chatModel, "", 0)
	orchestrator := conversation.New(ledger, profiles, threadAgent, cfg.Memory.SearchLimit)

	worker := ingest.NewWorker(store, retriever, 500*time.Millisecond)
	if n, err := worker.Backfill(ctx, backfillBatch); err != nil {
		slog.Warn("memory backfill failed", "error", err)
	} else if n > 0 {
		slog.Info("memory backfill complete", "count", n)
	}
	go worker.Run(ctx)

	if cfg.Server.APIToken == "" {
		slog.Warn("no API token configured, /api routes are unauthenticated")
	}

	handler := api.NewHandler(api.Deps{
		Ledger:       ledger,
		Profiles:     profiles,
		Conversation: orchestrator,
		Sessions:     session.NewRegistry(threadAgent),
		Locks:        &session.Locks{},
		Token:        cfg.Server.APIToken,
	})

	if withMCP || cfg.MCP.Enabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Ledger: ledger, Profiles: profiles}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "chefmate listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("chefmate is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop chefmate (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to chefmate (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Partial status is still useful with a broken config.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	backend := engine.ResolveBackend(cfg.Engine.Backend, cfg.OpenAI.APIKey)
	chat, embed := cfg.Models(backend)
	printStatus("Engine", "%s", backend)
	switch backend {
	case engine.BackendOllama:
		if r, err := client.Get(cfg.Ollama.BaseURL + "/api/version"); err != nil {
			printStatus("Ollama", "not running")
		} else {
			r.Body.Close()
			printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
		}
	case engine.BackendOpenAI:
		printStatus("OpenAI", "%s", cfg.OpenAI.BaseURL)
	}
	printStatus("Chat model", "%s", chat)
	printStatus("Embed model", "%s", embed)
	printStatus("MCP", "%t", cfg.MCP.Enabled)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
