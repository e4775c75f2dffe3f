package main

import (
	"fmt"
	"net/http"
	"os"

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

	// Connect to the database
	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	trades := store.NewTradeStore(db)
	connections := store.NewConnectionStore(db)
	client := hyperliquid.NewClient(&cfg.Hyperliquid, log)
	syncer := syncpkg.NewSyncer(log, client, trades, connections)

	apiHandler := NewAPIHandler(log, trades, connections, syncer, client)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", apiHandler.HealthHandler)

	mux.HandleFunc("GET /api/trades", apiHandler.ListTradesHandler)
	mux.HandleFunc("POST /api/trades", apiHandler.CreateTradeHandler)
	mux.HandleFunc("PUT /api/trades/{id}", apiHandler.UpdateTradeHandler)
	mux.HandleFunc("DELETE /api/trades/{id}", apiHandler.DeleteTradeHandler)

	mux.HandleFunc("GET /api/stats", apiHandler.StatsHandler)
	mux.HandleFunc("GET /api/stats/cumulative", apiHandler.CumulativeHandler)
	mux.HandleFunc("GET /api/stats/symbols", apiHandler.SymbolsHandler)
	mux.HandleFunc("GET /api/stats/strategies", apiHandler.StrategiesHandler)
	mux.HandleFunc("GET /api/calendar", apiHandler.CalendarHandler)

	mux.HandleFunc("POST /api/sync", apiHandler.SyncHandler)
	mux.HandleFunc("POST /api/sync/all", apiHandler.SyncAllHandler)

	mux.HandleFunc("GET /api/connections", apiHandler.ConnectionHandler)
	mux.HandleFunc("POST /api/connections", apiHandler.ConnectHandler)
	mux.HandleFunc("DELETE /api/connections", apiHandler.DisconnectHandler)

	mux.HandleFunc("GET /api/account", apiHandler.AccountHandler)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting journal API server", zap.String("address", addr))

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("API server failed", zap.Error(err))
	}
}
