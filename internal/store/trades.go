package store

import (
	"fmt"

	"gorm.io/gorm"

	"trade-journal-go/internal/models"
)

// TradeFilter narrows an active-trades read. Zero values match everything.
type TradeFilter struct {
	Symbol    string
	Direction string
	Strategy  string
	Source    string
}

// TradeStore is the repository for journal entries. Soft-deleted rows are
// excluded from every read except ExistingSourceIDs, which deliberately
// includes them so resync cannot resurrect a deleted trade.
type TradeStore struct {
	db *gorm.DB
}

// NewTradeStore creates a TradeStore over the given gorm handle.
func NewTradeStore(db *gorm.DB) *TradeStore {
	return &TradeStore{db: db}
}

// ActiveForUser returns the user's non-deleted trades, oldest close first.
// This is the single read path every analytics consumer goes through.
func (s *TradeStore) ActiveForUser(userID string, filter TradeFilter) ([]models.Trade, error) {
	q := s.db.Where("user_id = ?", userID)
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.Strategy != "" {
		q = q.Where("strategy = ?", filter.Strategy)
	}
	if filter.Source != "" {
		q = q.Where("source = ?", filter.Source)
	}

	var trades []models.Trade
	if err := q.Order("closed_at asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to read trades: %w", err)
	}
	return trades, nil
}

// Get returns one active trade by id, scoped to the owning user.
func (s *TradeStore) Get(userID, tradeID string) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Where("user_id = ? AND id = ?", userID, tradeID).First(&trade).Error
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

// ExistingSourceIDs returns which of the candidate source ids are already
// recorded for (user, source). The lookup runs Unscoped: a soft-deleted
// trade still claims its fill id, so a later sync will not re-insert it.
func (s *TradeStore) ExistingSourceIDs(userID, source string, candidates []string) (map[string]bool, error) {
	if len(candidates) == 0 {
		return map[string]bool{}, nil
	}

	var existing []string
	err := s.db.Unscoped().
		Model(&models.Trade{}).
		Where("user_id = ? AND source = ? AND source_id IN ?", userID, source, candidates).
		Pluck("source_id", &existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read existing source ids: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	return seen, nil
}

// Create inserts one trade.
func (s *TradeStore) Create(trade *models.Trade) error {
	if err := s.db.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// CreateBatch inserts all trades in one transaction. A duplicate-key
// rejection fails the whole batch; no rows from it are applied.
func (s *TradeStore) CreateBatch(trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&trades).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert trade batch: %w", err)
	}
	return nil
}

// Update persists edits to a manual trade. Synced trades are immutable
// once inserted; the caller enforces that.
func (s *TradeStore) Update(trade *models.Trade) error {
	if err := s.db.Save(trade).Error; err != nil {
		return fmt.Errorf("failed to update trade: %w", err)
	}
	return nil
}

// SoftDelete stamps the trade's deleted_at. The row stays in the table for
// auditability and keeps blocking its dedup key.
func (s *TradeStore) SoftDelete(userID, tradeID string) error {
	res := s.db.Where("user_id = ? AND id = ?", userID, tradeID).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
