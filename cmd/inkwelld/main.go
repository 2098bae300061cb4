// The inkwelld daemon hosts the writing workflow engine: it serves the HTTP
// API and WebSocket channel, runs one workflow per project, and persists
// state to Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"inkwell/internal/agent"
	"inkwell/internal/config"
	"inkwell/internal/docs"
	"inkwell/internal/hub"
	"inkwell/internal/llm"
	_ "inkwell/internal/llm/providers"
	"inkwell/internal/orchestrator"
	"inkwell/internal/server"
	"inkwell/pkg/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "inkwell.yml", "path to the configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	store := state.NewStore(redisOpts)
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis not accessible at %s: %w", cfg.Redis.URL, err)
	}

	docsStore := docs.NewStore(cfg.Output.Dir)
	h := hub.New(logger)

	client := llm.NewClient(llm.Endpoint{
		Provider:   cfg.Provider.Name,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Provider.Model,
		TokenLimit: cfg.Provider.TokenLimit,
	}, llm.WithLogger(logger))

	agents := agent.All(&agent.Env{Docs: docsStore, Workflow: cfg.Workflow})
	engine := orchestrator.NewEngine(store, client, h, agents, cfg, logger)

	srv := server.New(engine, store, h, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Start(addr); err != nil {
		return err
	}

	logger.Info("daemon started",
		"addr", addr,
		"provider", cfg.Provider.Name,
		"model", cfg.Provider.Model,
		"output_dir", cfg.Output.Dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadConfig reads the config file, falling back to built-in defaults when
// the default path does not exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "inkwell.yml" {
		return config.Default(), nil
	}
	return config.Load(path)
}
