package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lensfolio/agent-gateway/config"
	"github.com/lensfolio/agent-gateway/internal/agent"
	"github.com/lensfolio/agent-gateway/internal/llm"
	"github.com/lensfolio/agent-gateway/internal/shadow"
	"github.com/lensfolio/agent-gateway/internal/toolbus"
	"github.com/lensfolio/agent-gateway/internal/tools"
	transport "github.com/lensfolio/agent-gateway/internal/transport/http"
	"github.com/lensfolio/agent-gateway/policy"
	"github.com/lensfolio/agent-gateway/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting agent gateway",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("database", cfg.DatabaseURL),
		zap.String("model", cfg.OpenAIModel))

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx)
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	// Initialize tool registry and bus
	registry := toolbus.NewRegistry()
	if err := tools.RegisterAll(registry, tools.Deps{
		Store: db,
		Email: &tools.LogSender{Logger: logger},
	}); err != nil {
		logger.Fatal("failed to register tools", zap.Error(err))
	}
	bus := toolbus.New(registry, db, policyEngine, logger, cfg.ToolTimeout)

	// Initialize LLM client
	llmClient, err := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.LLMTimeout)
	if err != nil {
		logger.Fatal("failed to initialize llm client", zap.Error(err))
	}

	// Initialize agent runners and the shadow comparator
	legacy := agent.NewLegacy(db, llmClient, logger)
	orchestrator := agent.NewOrchestrator(db, bus, llmClient, logger)
	comparator := shadow.New(legacy, orchestrator, db, nil, logger)

	// Initialize HTTP server
	h := transport.NewHandler(db, bus, orchestrator, comparator, logger)
	e := transport.NewServer(h)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("agent gateway started", zap.Int("port", cfg.HTTPPort))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down agent gateway")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
