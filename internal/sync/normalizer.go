package sync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/models"
)

// NormalizeFill converts one closing fill into a trade candidate for the
// given user. It is a pure function: no lookups, no side effects.
//
// The venue does not report the entry price on a closing fill, so it is
// back-derived from the exit price, size, direction, and realized P&L:
//
//	long:  entry = exit − pnl/size
//	short: entry = exit + pnl/size
//
// A zero size degenerates to entry == exit; the caller treats that as a
// data-quality signal, not a failure. A fill with an unparseable numeric
// field is rejected with an error and the caller decides whether to skip it.
func NormalizeFill(fill hyperliquid.Fill, userID string) (models.Trade, error) {
	exit, err := strconv.ParseFloat(fill.Px, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("fill %s: malformed px %q", fill.SourceID(), fill.Px)
	}
	size, err := strconv.ParseFloat(fill.Sz, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("fill %s: malformed sz %q", fill.SourceID(), fill.Sz)
	}
	fee, err := strconv.ParseFloat(fill.Fee, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("fill %s: malformed fee %q", fill.SourceID(), fill.Fee)
	}
	pnl, err := strconv.ParseFloat(fill.ClosedPnl, 64)
	if err != nil {
		return models.Trade{}, fmt.Errorf("fill %s: malformed closedPnl %q", fill.SourceID(), fill.ClosedPnl)
	}

	direction := models.DirectionShort
	if strings.Contains(fill.Dir, "Long") {
		direction = models.DirectionLong
	}

	entry := exit
	if size != 0 {
		if direction == models.DirectionLong {
			entry = exit - pnl/size
		} else {
			entry = exit + pnl/size
		}
	}

	// A single closing fill does not tell us when the position was opened,
	// so both timestamps carry the fill time.
	ts := time.UnixMilli(fill.Time)
	exchange := hyperliquid.DisplayName
	sourceID := fill.SourceID()

	return models.Trade{
		UserID:     userID,
		Symbol:     fill.Coin,
		Direction:  direction,
		EntryPrice: entry,
		ExitPrice:  &exit,
		Size:       size,
		Fees:       fee,
		Pnl:        &pnl,
		Exchange:   &exchange,
		OpenedAt:   ts,
		ClosedAt:   &ts,
		Source:     hyperliquid.ExchangeName,
		SourceID:   &sourceID,
	}, nil
}
