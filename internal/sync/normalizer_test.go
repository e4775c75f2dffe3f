package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/models"
)

func TestNormalizeFill_CloseLong(t *testing.T) {
	fill := hyperliquid.Fill{
		Coin:      "BTC",
		Px:        "50000",
		Sz:        "1",
		Time:      1700000000000,
		Fee:       "2.5",
		ClosedPnl: "500",
		Dir:       "Close Long",
		Tid:       1,
	}

	trade, err := NormalizeFill(fill, "u1")
	assert.NoError(t, err)

	assert.Equal(t, "u1", trade.UserID)
	assert.Equal(t, "BTC", trade.Symbol)
	assert.Equal(t, models.DirectionLong, trade.Direction)
	assert.InDelta(t, 49500, trade.EntryPrice, 1e-9)
	assert.InDelta(t, 50000, *trade.ExitPrice, 1e-9)
	assert.InDelta(t, 500, *trade.Pnl, 1e-9)
	assert.InDelta(t, 2.5, trade.Fees, 1e-9)
	assert.Equal(t, "hyperliquid", trade.Source)
	assert.Equal(t, "1", *trade.SourceID)
	assert.Equal(t, "Hyperliquid", *trade.Exchange)

	// A single closing fill carries no open time; both stamps are the
	// fill time.
	assert.Equal(t, time.UnixMilli(1700000000000), trade.OpenedAt)
	assert.Equal(t, trade.OpenedAt, *trade.ClosedAt)
}

func TestNormalizeFill_CloseShort(t *testing.T) {
	fill := hyperliquid.Fill{
		Coin:      "ETH",
		Px:        "3000",
		Sz:        "2",
		Time:      1700000000000,
		Fee:       "1",
		ClosedPnl: "200",
		Dir:       "Close Short",
		Tid:       2,
	}

	trade, err := NormalizeFill(fill, "u1")
	assert.NoError(t, err)

	assert.Equal(t, models.DirectionShort, trade.Direction)
	// short: entry = exit + pnl/size = 3000 + 100
	assert.InDelta(t, 3100, trade.EntryPrice, 1e-9)
}

// The derived entry price must satisfy the P&L identity for either
// direction: pnl == (exit − entry) * size for longs and the mirror for
// shorts.
func TestNormalizeFill_EntryBackDerivation(t *testing.T) {
	cases := []struct {
		name string
		dir  string
		px   string
		sz   string
		pnl  string
	}{
		{"LongWin", "Close Long", "105.5", "3", "42.6"},
		{"LongLoss", "Close Long", "88.25", "0.5", "-13.1"},
		{"ShortWin", "Close Short", "17.42", "120", "310"},
		{"ShortLoss", "Close Short", "0.9934", "5000", "-75.5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fill := hyperliquid.Fill{
				Coin: "X", Px: tc.px, Sz: tc.sz, Fee: "0",
				ClosedPnl: tc.pnl, Dir: tc.dir, Time: 1, Tid: 9,
			}
			trade, err := NormalizeFill(fill, "u1")
			assert.NoError(t, err)

			var reconstructed float64
			if trade.Direction == models.DirectionLong {
				reconstructed = (*trade.ExitPrice - trade.EntryPrice) * trade.Size
			} else {
				reconstructed = (trade.EntryPrice - *trade.ExitPrice) * trade.Size
			}
			assert.InDelta(t, *trade.Pnl, reconstructed, 1e-6)
		})
	}
}

func TestNormalizeFill_ZeroSizeDefaultsEntryToExit(t *testing.T) {
	fill := hyperliquid.Fill{
		Coin: "BTC", Px: "50000", Sz: "0", Fee: "0",
		ClosedPnl: "0", Dir: "Close Long", Time: 1, Tid: 3,
	}

	trade, err := NormalizeFill(fill, "u1")
	assert.NoError(t, err)
	assert.InDelta(t, 50000, trade.EntryPrice, 1e-9)
	assert.Zero(t, trade.Size)
}

func TestNormalizeFill_MalformedNumbers(t *testing.T) {
	base := hyperliquid.Fill{
		Coin: "BTC", Px: "50000", Sz: "1", Fee: "1",
		ClosedPnl: "10", Dir: "Close Long", Time: 1, Tid: 4,
	}

	bad := base
	bad.Px = "fifty thousand"
	_, err := NormalizeFill(bad, "u1")
	assert.Error(t, err)

	bad = base
	bad.Sz = ""
	_, err = NormalizeFill(bad, "u1")
	assert.Error(t, err)

	bad = base
	bad.ClosedPnl = "NaN-ish"
	_, err = NormalizeFill(bad, "u1")
	assert.Error(t, err)

	bad = base
	bad.Fee = "1,5"
	_, err = NormalizeFill(bad, "u1")
	assert.Error(t, err)
}
