package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trade-journal-go/internal/hyperliquid"
	"trade-journal-go/internal/models"
	"trade-journal-go/internal/store"
)

// MockClient is a mock implementation of the hyperliquid.ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) UserFills(ctx context.Context, wallet string, startTime *int64) ([]hyperliquid.Fill, error) {
	args := m.Called(ctx, wallet, startTime)
	return args.Get(0).([]hyperliquid.Fill), args.Error(1)
}

func (m *MockClient) UserState(ctx context.Context, wallet string) (*hyperliquid.AccountState, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(*hyperliquid.AccountState), args.Error(1)
}

// setupTest creates a full test environment with a mock client and
// in-memory DB.
func setupTest(t *testing.T) (*Syncer, *MockClient, *store.TradeStore, *store.ConnectionStore) {
	// Use a new, non-shared in-memory database for each test to ensure
	// isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Trade{}, &models.ExchangeConnection{})
	assert.NoError(t, err)

	mockClient := new(MockClient)
	trades := store.NewTradeStore(db)
	connections := store.NewConnectionStore(db)
	syncer := NewSyncer(zap.NewNop(), mockClient, trades, connections)

	return syncer, mockClient, trades, connections
}

func connect(t *testing.T, connections *store.ConnectionStore, userID, wallet string) *models.ExchangeConnection {
	conn := models.ExchangeConnection{
		UserID:        userID,
		Exchange:      hyperliquid.ExchangeName,
		WalletAddress: wallet,
		SyncPeriod:    models.SyncPeriod30d,
		Status:        models.SyncStatusUnsynced,
	}
	assert.NoError(t, connections.Upsert(&conn))
	return &conn
}

func closeFill(tid int64, coin, px, sz, pnl, dir string) hyperliquid.Fill {
	return hyperliquid.Fill{
		Coin: coin, Px: px, Sz: sz, Fee: "0.5",
		ClosedPnl: pnl, Dir: dir, Time: 1700000000000 + tid, Tid: tid,
	}
}

func TestSyncUser_NoConnection(t *testing.T) {
	syncer, _, _, _ := setupTest(t)

	_, err := syncer.SyncUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoConnection)
}

func TestSyncUser_InsertsClosingFills(t *testing.T) {
	syncer, mockClient, trades, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	fills := []hyperliquid.Fill{
		closeFill(1, "BTC", "50000", "1", "500", "Close Long"),
		// Opening fills never enter the journal.
		{Coin: "ETH", Px: "3000", Sz: "1", Fee: "0", ClosedPnl: "0", Dir: "Open Long", Time: 1, Tid: 2},
	}
	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).Return(fills, nil)

	res, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, Result{Inserted: 1, Skipped: 0}, res)

	got, err := trades.ActiveForUser("u1", store.TradeFilter{})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, models.DirectionLong, got[0].Direction)
	assert.InDelta(t, 50000, *got[0].ExitPrice, 1e-9)
	assert.InDelta(t, 49500, got[0].EntryPrice, 1e-9)
	assert.InDelta(t, 500, *got[0].Pnl, 1e-9)

	conn, err := connections.ForUser("u1", hyperliquid.ExchangeName)
	assert.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, conn.Status)
	assert.NotNil(t, conn.LastSyncedAt)

	mockClient.AssertExpectations(t)
}

// Running sync twice against the same remote fills inserts every fill once
// and only once.
func TestSyncUser_Idempotent(t *testing.T) {
	syncer, mockClient, _, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	fills := []hyperliquid.Fill{
		closeFill(1, "BTC", "50000", "1", "500", "Close Long"),
		closeFill(2, "ETH", "3000", "2", "-120", "Close Short"),
		closeFill(3, "SOL", "150", "10", "33", "Close Long"),
	}
	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).Return(fills, nil)

	first, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, Result{Inserted: 3, Skipped: 0}, first)

	second, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, Result{Inserted: 0, Skipped: 3}, second)
}

func TestSyncUser_FetchFailureMarksError(t *testing.T) {
	syncer, mockClient, _, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).
		Return([]hyperliquid.Fill{}, hyperliquid.ErrRemoteUnavailable)

	_, err := syncer.SyncUser(context.Background(), "u1")
	assert.Error(t, err)
	assert.ErrorIs(t, err, hyperliquid.ErrRemoteUnavailable)

	conn, err := connections.ForUser("u1", hyperliquid.ExchangeName)
	assert.NoError(t, err)
	assert.Equal(t, models.SyncStatusError, conn.Status)
	assert.Nil(t, conn.LastSyncedAt)
}

// A sync_error connection stays retryable: the next attempt can succeed.
func TestSyncUser_ErrorStateIsRetryable(t *testing.T) {
	syncer, mockClient, _, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).
		Return([]hyperliquid.Fill{}, errors.New("flaky")).Once()
	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).
		Return([]hyperliquid.Fill{closeFill(1, "BTC", "50000", "1", "500", "Close Long")}, nil).Once()

	_, err := syncer.SyncUser(context.Background(), "u1")
	assert.Error(t, err)

	res, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, Result{Inserted: 1, Skipped: 0}, res)

	conn, _ := connections.ForUser("u1", hyperliquid.ExchangeName)
	assert.Equal(t, models.SyncStatusSynced, conn.Status)
}

func TestSyncUser_MalformedFillSkippedNotFatal(t *testing.T) {
	syncer, mockClient, trades, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	fills := []hyperliquid.Fill{
		closeFill(1, "BTC", "not-a-price", "1", "500", "Close Long"),
		closeFill(2, "ETH", "3000", "2", "-120", "Close Short"),
	}
	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).Return(fills, nil)

	res, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	got, _ := trades.ActiveForUser("u1", store.TradeFilter{})
	assert.Len(t, got, 1)
	assert.Equal(t, "ETH", got[0].Symbol)
}

// A soft-deleted trade's fill id still blocks resync from recreating it.
func TestSyncUser_DeletedTradeNotResurrected(t *testing.T) {
	syncer, mockClient, trades, connections := setupTest(t)
	connect(t, connections, "u1", "0xwallet")

	fills := []hyperliquid.Fill{closeFill(1, "BTC", "50000", "1", "500", "Close Long")}
	mockClient.On("UserFills", mock.Anything, "0xwallet", mock.Anything).Return(fills, nil)

	_, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)

	got, _ := trades.ActiveForUser("u1", store.TradeFilter{})
	assert.Len(t, got, 1)
	assert.NoError(t, trades.SoftDelete("u1", got[0].ID))

	res, err := syncer.SyncUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, Result{Inserted: 0, Skipped: 1}, res)

	got, _ = trades.ActiveForUser("u1", store.TradeFilter{})
	assert.Empty(t, got)
}

// One user's fetch failure is isolated: the other users still sync, and
// only their connections get a fresh last_synced_at.
func TestSyncAll_IsolatesFailures(t *testing.T) {
	syncer, mockClient, _, connections := setupTest(t)
	connect(t, connections, "alice", "0xalice")
	connect(t, connections, "bob", "0xbob")

	mockClient.On("UserFills", mock.Anything, "0xalice", mock.Anything).
		Return([]hyperliquid.Fill{}, hyperliquid.ErrRemoteUnavailable)
	mockClient.On("UserFills", mock.Anything, "0xbob", mock.Anything).
		Return([]hyperliquid.Fill{closeFill(1, "BTC", "50000", "1", "500", "Close Long")}, nil)

	results, err := syncer.SyncAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, results, 2)

	byUser := map[string]UserResult{}
	for _, r := range results {
		byUser[r.UserID] = r
	}

	assert.NotEmpty(t, byUser["alice"].Error)
	assert.Zero(t, byUser["alice"].Inserted)

	assert.Empty(t, byUser["bob"].Error)
	assert.Equal(t, 1, byUser["bob"].Inserted)

	aliceConn, _ := connections.ForUser("alice", hyperliquid.ExchangeName)
	bobConn, _ := connections.ForUser("bob", hyperliquid.ExchangeName)
	assert.Nil(t, aliceConn.LastSyncedAt)
	assert.NotNil(t, bobConn.LastSyncedAt)
	assert.Equal(t, models.SyncStatusError, aliceConn.Status)
	assert.Equal(t, models.SyncStatusSynced, bobConn.Status)
}

func TestSyncAll_NoConnections(t *testing.T) {
	syncer, _, _, _ := setupTest(t)

	results, err := syncer.SyncAll(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, results)
}
