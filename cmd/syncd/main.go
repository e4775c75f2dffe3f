package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/store"
	syncpkg "trade-journal-go/internal/sync"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Connect to the database
	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	trades := store.NewTradeStore(db)
	connections := store.NewConnectionStore(db)
	client := hyperliquid.NewClient(&cfg.Hyperliquid, log)
	syncer := syncpkg.NewSyncer(log, client, trades, connections)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	interval := time.Duration(cfg.Sync.Interval) * time.Second
	runTimeout := time.Duration(cfg.Sync.RunTimeout) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Starting sync loop",
		zap.Duration("interval", interval),
		zap.Duration("run_timeout", runTimeout))

	// Run one round immediately, then on every tick.
	runRound(ctx, log, syncer, runTimeout)
	for {
		select {
		case <-ctx.Done():
			log.Info("Sync daemon stopped.")
			return
		case <-ticker.C:
			runRound(ctx, log, syncer, runTimeout)
		}
	}
}

// runRound syncs every registered connection under a wall-clock budget.
func runRound(ctx context.Context, log *zap.Logger, syncer *syncpkg.Syncer, timeout time.Duration) {
	roundCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := syncer.SyncAll(roundCtx)
	if err != nil {
		log.Error("Sync round aborted", zap.Error(err))
	}

	var inserted, skipped, failed int
	for _, r := range results {
		inserted += r.Inserted
		skipped += r.Skipped
		if r.Error != "" {
			failed++
		}
	}
	log.Info("Sync round complete",
		zap.Int("connections", len(results)),
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
}
