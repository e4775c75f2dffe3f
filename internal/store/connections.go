package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"trade-journal-go/internal/models"
)

// ConnectionStore is the repository for exchange connections.
type ConnectionStore struct {
	db *gorm.DB
}

// NewConnectionStore creates a ConnectionStore over the given gorm handle.
func NewConnectionStore(db *gorm.DB) *ConnectionStore {
	return &ConnectionStore{db: db}
}

// ForUser returns the user's connection to the given exchange, or
// gorm.ErrRecordNotFound.
func (s *ConnectionStore) ForUser(userID, exchange string) (*models.ExchangeConnection, error) {
	var conn models.ExchangeConnection
	err := s.db.Where("user_id = ? AND exchange = ?", userID, exchange).First(&conn).Error
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// All returns every registered connection, oldest first, for the scheduled
// sync loop.
func (s *ConnectionStore) All() ([]models.ExchangeConnection, error) {
	var conns []models.ExchangeConnection
	if err := s.db.Order("created_at asc").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to read connections: %w", err)
	}
	return conns, nil
}

// Upsert creates the user's connection for an exchange or replaces its
// wallet and look-back window. Trades already synced are untouched.
func (s *ConnectionStore) Upsert(conn *models.ExchangeConnection) error {
	existing, err := s.ForUser(conn.UserID, conn.Exchange)
	if err == gorm.ErrRecordNotFound {
		if err := s.db.Create(conn).Error; err != nil {
			return fmt.Errorf("failed to create connection: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read connection: %w", err)
	}

	existing.WalletAddress = conn.WalletAddress
	existing.SyncPeriod = conn.SyncPeriod
	if err := s.db.Save(existing).Error; err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	*conn = *existing
	return nil
}

// SetStatus records a sync state transition.
func (s *ConnectionStore) SetStatus(id, status string) error {
	err := s.db.Model(&models.ExchangeConnection{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("failed to update connection status: %w", err)
	}
	return nil
}

// MarkSynced records a successful sync: status synced plus a fresh
// last_synced_at.
func (s *ConnectionStore) MarkSynced(id string, at time.Time) error {
	err := s.db.Model(&models.ExchangeConnection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":         models.SyncStatusSynced,
			"last_synced_at": at,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark connection synced: %w", err)
	}
	return nil
}

// Delete removes the connection. Synced trades are retained; disconnecting
// never cascades into history.
func (s *ConnectionStore) Delete(userID, exchange string) error {
	res := s.db.Where("user_id = ? AND exchange = ?", userID, exchange).
		Delete(&models.ExchangeConnection{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
