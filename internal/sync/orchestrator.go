package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
)

// Result summarizes one user's sync: how many fills landed as new trades
// and how many were already recorded.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// UserResult is one entry of a multi-user sync round.
type UserResult struct {
	UserID   string `json:"user_id"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Syncer coordinates fetch → filter → dedup → normalize → persist for one
// user, and loops over all registered connections for the scheduled
// variant. One user's failure never aborts the others.
type Syncer struct {
	logger      *zap.Logger
	client      hyperliquid.ClientInterface
	trades      *store.TradeStore
	connections *store.ConnectionStore

	// Two concurrent syncs for the same user must not race the dedup
	// check-then-insert, so each user syncs under their own lock.
	mu        gosync.Mutex
	userLocks map[string]*gosync.Mutex
}

// NewSyncer creates a sync orchestrator.
func NewSyncer(logger *zap.Logger, client hyperliquid.ClientInterface, trades *store.TradeStore, connections *store.ConnectionStore) *Syncer {
	return &Syncer{
		logger:      logger,
		client:      client,
		trades:      trades,
		connections: connections,
		userLocks:   make(map[string]*gosync.Mutex),
	}
}

func (s *Syncer) userLock(userID string) *gosync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &gosync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

// SyncUser runs one full sync for the given user's connection. It returns
// ErrNoConnection when the user has no registered exchange link, and a
// wrapped fetch/store error otherwise. On any failure the connection moves
// to sync_error and stays retryable.
func (s *Syncer) SyncUser(ctx context.Context, userID string) (Result, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	conn, err := s.connections.ForUser(userID, hyperliquid.ExchangeName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, ErrNoConnection
	}
	if err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	return s.syncConnection(ctx, conn)
}

// syncConnection is the core routine shared by the on-demand and scheduled
// entry points.
func (s *Syncer) syncConnection(ctx context.Context, conn *models.ExchangeConnection) (Result, error) {
	l := s.logger.With(
		zap.String("user_id", conn.UserID),
		zap.String("wallet", conn.WalletAddress),
	)

	if err := s.connections.SetStatus(conn.ID, models.SyncStatusSyncing); err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	res, err := s.run(ctx, conn, l)
	if err != nil {
		if serr := s.connections.SetStatus(conn.ID, models.SyncStatusError); serr != nil {
			l.Error("Failed to record sync_error status", zap.Error(serr))
		}
		return Result{}, err
	}

	if err := s.connections.MarkSynced(conn.ID, time.Now()); err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	l.Info("Sync complete", zap.Int("inserted", res.Inserted), zap.Int("skipped", res.Skipped))
	return res, nil
}

func (s *Syncer) run(ctx context.Context, conn *models.ExchangeConnection, l *zap.Logger) (Result, error) {
	lookback := models.SyncPeriodDuration(conn.SyncPeriod)
	startTime := time.Now().Add(-lookback).UnixMilli()

	fills, err := s.client.UserFills(ctx, conn.WalletAddress, &startTime)
	if err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	// Only closing fills carry a realized P&L; opening fills never enter
	// the journal.
	var closing []hyperliquid.Fill
	for _, f := range fills {
		if f.IsClose() {
			closing = append(closing, f)
		}
	}
	if len(closing) == 0 {
		return Result{}, nil
	}

	candidates := make([]string, len(closing))
	for i, f := range closing {
		candidates[i] = f.SourceID()
	}

	// The store's unique index on (user, source, source_id) is the actual
	// safety net; this check just avoids pointless rejected inserts.
	existing, err := s.trades.ExistingSourceIDs(conn.UserID, hyperliquid.ExchangeName, candidates)
	if err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	var batch []models.Trade
	for _, f := range closing {
		if existing[f.SourceID()] {
			continue
		}
		trade, err := NormalizeFill(f, conn.UserID)
		if err != nil {
			l.Warn("Skipping malformed fill", zap.Error(err))
			continue
		}
		if trade.Size == 0 {
			l.Warn("Fill has zero size, entry price defaulted to exit",
				zap.String("source_id", f.SourceID()),
				zap.String("symbol", trade.Symbol))
		}
		batch = append(batch, trade)
	}

	if err := s.trades.CreateBatch(batch); err != nil {
		return Result{}, fmt.Errorf("sync failed: %w", err)
	}

	return Result{
		Inserted: len(batch),
		Skipped:  len(closing) - len(batch),
	}, nil
}

// SyncAll runs the core routine for every registered connection, one at a
// time. A single user's failure is caught, stringified, and attached to
// that user's result entry; the loop continues. Partial success is the
// expected steady state.
func (s *Syncer) SyncAll(ctx context.Context) ([]UserResult, error) {
	conns, err := s.connections.All()
	if err != nil {
		return nil, fmt.Errorf("sync failed: %w", err)
	}

	results := make([]UserResult, 0, len(conns))
	for i := range conns {
		conn := &conns[i]

		lock := s.userLock(conn.UserID)
		lock.Lock()
		res, err := s.syncConnection(ctx, conn)
		lock.Unlock()

		entry := UserResult{UserID: conn.UserID, Inserted: res.Inserted, Skipped: res.Skipped}
		if err != nil {
			entry.Error = err.Error()
			s.logger.Error("User sync failed", zap.String("user_id", conn.UserID), zap.Error(err))
		}
		results = append(results, entry)

		if ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}
