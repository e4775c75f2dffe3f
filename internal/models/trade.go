package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"

	// SourceManual marks trades entered by hand. Any other source value is
	// an exchange identifier and requires a SourceID.
	SourceManual = "manual"
)

// Trade is one journal entry. A trade with a non-nil Pnl is closed and
// participates in analytics; soft-deleted rows are excluded from every
// read path by gorm's DeletedAt handling.
type Trade struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID     string     `gorm:"index;uniqueIndex:idx_user_source_fill" json:"user_id"`
	Symbol     string     `gorm:"not null" json:"symbol"`
	Direction  string     `gorm:"not null" json:"direction"` // "long" or "short"
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price"`
	Size       float64    `json:"size"`
	Fees       float64    `json:"fees"`
	Pnl        *float64   `json:"pnl"`
	Strategy   *string    `json:"strategy"`
	Exchange   *string    `json:"exchange"`
	Notes      *string    `json:"notes"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at"`

	// Provenance. SourceID is the venue's native fill identifier and the
	// sync idempotency key; it stays NULL for manual entries so the unique
	// index never collides across hand-entered trades.
	Source   string  `gorm:"not null;default:manual;uniqueIndex:idx_user_source_fill" json:"source"`
	SourceID *string `gorm:"uniqueIndex:idx_user_source_fill" json:"source_id"`
}

// BeforeCreate assigns an opaque id when the caller did not.
func (t *Trade) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Closed reports whether the trade has a realized P&L.
func (t *Trade) Closed() bool {
	return t.Pnl != nil
}
