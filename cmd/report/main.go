package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/stats"
	"trade-journal-go/internal/store"
)

func main() {
	configPath := flag.String("config", "./configs", "config directory")
	user := flag.String("user", "", "user id to report on")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "usage: report -user <id> [-config <dir>]")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := store.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	trades, err := store.NewTradeStore(db).ActiveForUser(*user, store.TradeFilter{})
	if err != nil {
		log.Fatal("Failed to read trades", zap.Error(err))
	}

	summary := stats.Compute(trades)
	fmt.Printf("Journal report for %s — %d closed trades\n\n", *user, summary.TotalTrades)

	printSummary(summary)
	printSymbols(stats.PnlBySymbol(trades))
	printStrategies(stats.ByStrategy(trades))
}

func printSummary(s stats.Stats) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Total P&L", "Win rate", "Avg win", "Avg loss", "Best", "Worst")
	table.Append(
		fmt.Sprintf("$%.2f", s.TotalPnl),
		fmt.Sprintf("%.1f%%", s.WinRate),
		fmt.Sprintf("$%.2f", s.AvgWin),
		fmt.Sprintf("$%.2f", s.AvgLoss),
		fmt.Sprintf("$%.2f", s.BestTrade),
		fmt.Sprintf("$%.2f", s.WorstTrade),
	)
	table.Render()
	fmt.Println()
}

func printSymbols(symbols []stats.SymbolPnl) {
	if len(symbols) == 0 {
		return
	}
	fmt.Println("P&L by symbol")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "P&L")
	for _, s := range symbols {
		table.Append(s.Symbol, fmt.Sprintf("$%.2f", s.Pnl))
	}
	table.Render()
	fmt.Println()
}

func printStrategies(groups []stats.StrategyStats) {
	if len(groups) == 0 {
		return
	}
	fmt.Println("Stats by strategy")
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Strategy", "Trades", "Win rate", "Total P&L", "Avg win", "Avg loss")
	for _, g := range groups {
		table.Append(
			g.Strategy,
			fmt.Sprintf("%d", g.TotalTrades),
			fmt.Sprintf("%.1f%%", g.WinRate),
			fmt.Sprintf("$%.2f", g.TotalPnl),
			fmt.Sprintf("$%.2f", g.AvgWin),
			fmt.Sprintf("$%.2f", g.AvgLoss),
		)
	}
	table.Render()
	fmt.Println()
}
