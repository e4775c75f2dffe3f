package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sync period choices for an exchange connection's look-back window.
const (
	SyncPeriod7d   = "7d"
	SyncPeriod30d  = "30d"
	SyncPeriod90d  = "90d"
	SyncPeriod180d = "180d"
)

// Connection sync states. sync_error is always retryable; the next attempt
// moves the connection through syncing again.
const (
	SyncStatusUnsynced = "unsynced"
	SyncStatusSyncing  = "syncing"
	SyncStatusSynced   = "synced"
	SyncStatusError    = "sync_error"
)

// SyncPeriodDuration maps a configured look-back window to its duration.
// Unknown values fall back to 30 days.
func SyncPeriodDuration(period string) time.Duration {
	switch period {
	case SyncPeriod7d:
		return 7 * 24 * time.Hour
	case SyncPeriod30d:
		return 30 * 24 * time.Hour
	case SyncPeriod90d:
		return 90 * 24 * time.Hour
	case SyncPeriod180d:
		return 180 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// ExchangeConnection links a user to the wallet whose fills we sync.
// Deleting a connection does not cascade to trades already synced.
type ExchangeConnection struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID        string     `gorm:"uniqueIndex:idx_user_exchange" json:"user_id"`
	Exchange      string     `gorm:"uniqueIndex:idx_user_exchange" json:"exchange"`
	WalletAddress string     `gorm:"not null" json:"wallet_address"`
	SyncPeriod    string     `gorm:"not null;default:30d" json:"sync_period"`
	Status        string     `gorm:"not null;default:unsynced" json:"status"`
	LastSyncedAt  *time.Time `json:"last_synced_at"`
}

func (c *ExchangeConnection) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = SyncStatusUnsynced
	}
	if c.SyncPeriod == "" {
		c.SyncPeriod = SyncPeriod30d
	}
	return nil
}
