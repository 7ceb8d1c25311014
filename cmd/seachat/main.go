package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kaimana/seachat/internal/config"
	"github.com/kaimana/seachat/internal/logger"
	"github.com/kaimana/seachat/internal/prompt"
	"github.com/kaimana/seachat/pkg/engine"
	"github.com/kaimana/seachat/pkg/server"
	"github.com/kaimana/seachat/pkg/session"
	"github.com/kaimana/seachat/pkg/store"
	"github.com/kaimana/seachat/pkg/upload"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seachat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("SEACHAT_CONFIG")
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	zlog := appLogger.Zerolog()

	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	sessionStore := store.NewRedisStore(client)
	if err := sessionStore.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer sessionStore.Close()
	zlog.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	factory := newEngineFactory(cfg, sessionStore, zlog)
	registry := session.NewRegistry(factory, sessionStore, cfg.Session.StaticDir)

	reaper := session.NewReaper(registry, sessionStore, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)
	if err := reaper.Start(); err != nil {
		return fmt.Errorf("failed to start idle reaper: %w", err)
	}
	defer reaper.Stop()

	orphans := session.NewOrphanSweeper(registry, sessionStore, cfg.Session.StaticDir, cfg.Session.OrphanSweepSchedule)
	if err := orphans.Start(); err != nil {
		return fmt.Errorf("failed to start orphan sweeper: %w", err)
	}
	defer orphans.Stop()

	guard := upload.NewGuard(cfg.Upload, upload.NewScanner(cfg.Scanner))
	srv := server.NewServer(*cfg, registry, guard, sessionStore, zlog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	zlog.Info().Msg("Shutdown complete")
	return nil
}

// newEngineFactory builds per-session execution contexts. A session with
// a durable transcript gets it restored, so conversations survive
// process restarts.
func newEngineFactory(cfg *config.Config, sessionStore store.Store, zlog zerolog.Logger) session.Factory {
	return func(sessionID string) (engine.Engine, error) {
		interp, err := engine.NewInterpreter(cfg.Engine, prompt.SystemPrompt)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		transcript, found, err := sessionStore.Transcript(ctx, sessionID)
		if err != nil {
			zlog.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read durable transcript")
			return interp, nil
		}
		if !found {
			return interp, nil
		}

		var messages []engine.Message
		if err := json.Unmarshal(transcript, &messages); err != nil {
			zlog.Error().Err(err).Str("session_id", sessionID).Msg("Malformed durable transcript, starting fresh")
			return interp, nil
		}
		interp.SetMessages(messages)
		zlog.Info().Str("session_id", sessionID).Int("messages", len(messages)).Msg("Restored transcript")

		return interp, nil
	}
}
