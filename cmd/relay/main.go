// relay connects to an upstream WebSocket endpoint and archives every
// received message to PostgreSQL.
// Usage: go run ./cmd/relay --config configs/relay.example.yaml
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

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	nullnexus "github.com/cinortaxeh/libnullnexus"
	"github.com/cinortaxeh/libnullnexus/internal/archive"
	"github.com/cinortaxeh/libnullnexus/internal/config"
	"github.com/cinortaxeh/libnullnexus/internal/database"
	"github.com/cinortaxeh/libnullnexus/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/relay.example.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Connect to the archive database
	pool, err := database.Connect(ctx, cfg.Database, cfg.Instance.ID)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Received messages flow from the client callback to the archiver
	// through this buffer.
	messages := make(chan archive.Message, cfg.Archive.BufferSize)

	archiver := archive.New(archive.Config{
		InstanceID:    cfg.Instance.ID,
		BatchSize:     cfg.Archive.BatchSize,
		FlushInterval: cfg.Archive.FlushInterval,
	}, messages, pool, logger)

	client := nullnexus.New(nullnexus.ClientConfig{
		Scheme:           cfg.Server.Scheme,
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		Path:             cfg.Server.Path,
		UserAgent:        cfg.Server.UserAgent,
		RetryDelay:       cfg.Client.RetryDelay,
		QueueRetryDelay:  cfg.Client.QueueRetryDelay,
		WriteTimeout:     cfg.Client.WriteTimeout,
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
		OnMessage: func(payload string) {
			msg := archive.Message{
				ID:         uuid.New(),
				Payload:    payload,
				ReceivedAt: time.Now(),
			}
			select {
			case messages <- msg:
			default:
				logger.Warn("archive buffer full, dropping message")
			}
		},
	}, logger)

	logger.Info("starting relay",
		"instance", cfg.Instance.ID,
		"server", cfg.Server.Host+":"+cfg.Server.Port+cfg.Server.Path,
		"version", version.String(),
	)

	if err := archiver.Start(ctx); err != nil {
		logger.Error("failed to start archiver", "error", err)
		os.Exit(1)
	}
	client.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				clientStats := client.Stats()
				archiveStats := archiver.Stats()
				logger.Info("stats",
					"connected", clientStats.Connected,
					"queued", clientStats.Queued,
					"attempts", clientStats.Attempts,
					"delivered", clientStats.Delivered,
					"inserts", archiveStats.Inserts,
					"conflicts", archiveStats.Conflicts,
					"errors", archiveStats.Errors,
				)
			}
		}
	})

	// Wait for shutdown
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	client.Stop()
	archiver.Stop(shutdownCtx)
	g.Wait()

	logger.Info("shutdown complete")
}
