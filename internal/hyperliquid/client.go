package hyperliquid

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-journal-go/internal/config"
)

const defaultBaseURL = "https://api.hyperliquid.xyz/info"

// ExchangeName is the value stored in a trade's source column.
const ExchangeName = "hyperliquid"

// DisplayName is the human-facing exchange label stored on synced trades.
const DisplayName = "Hyperliquid"

// Fill is one execution event as reported by the info endpoint. Numeric
// fields arrive as strings and are parsed exactly once, at the
// normalization boundary.
type Fill struct {
	Coin       string `json:"coin"`
	Px         string `json:"px"`
	Sz         string `json:"sz"`
	Side       string `json:"side"`
	Time       int64  `json:"time"` // ms epoch
	Fee        string `json:"fee"`
	ClosedPnl  string `json:"closedPnl"`
	Dir        string `json:"dir"` // e.g. "Open Long", "Close Short"
	Hash       string `json:"hash"`
	Tid        int64  `json:"tid"`
	Oid        int64  `json:"oid"`
	Crossed    bool   `json:"crossed"`
	FeeToken   string `json:"feeToken"`
	BuilderFee string `json:"builderFee,omitempty"`
}

// SourceID returns the fill's venue-native identifier as stored in the
// trade log. It is the sync idempotency key.
func (f Fill) SourceID() string {
	return strconv.FormatInt(f.Tid, 10)
}

// IsClose reports whether the fill realizes P&L by reducing or closing a
// position.
func (f Fill) IsClose() bool {
	return strings.HasPrefix(f.Dir, "Close")
}

// AccountState is a snapshot of the wallet's perps account.
type AccountState struct {
	AccountValue  float64 `json:"account_value"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}

// ClientInterface defines the interface for the Hyperliquid info API client.
type ClientInterface interface {
	UserFills(ctx context.Context, wallet string, startTime *int64) ([]Fill, error)
	UserState(ctx context.Context, wallet string) (*AccountState, error)
}

// Client talks to the Hyperliquid info endpoint. All requests are POSTs
// against a single URL with a type-discriminated JSON body.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Hyperliquid info API client.
func NewClient(cfg *config.Hyperliquid, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New().SetBaseURL(baseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// post executes one info request. There is no retry here: a failed fetch is
// void and retrying is the caller's decision.
func (c *Client) post(ctx context.Context, body any, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := req.SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %s", ErrRemoteUnavailable, resp.Status())
	}
	return resp, nil
}

// UserFills fetches the wallet's fill history, optionally bounded by an
// earliest ms-epoch timestamp. A nil startTime returns the full history.
func (c *Client) UserFills(ctx context.Context, wallet string, startTime *int64) ([]Fill, error) {
	body := map[string]any{
		"type": "userFills",
		"user": wallet,
	}
	if startTime != nil {
		body["startTime"] = *startTime
	}

	var fills []Fill
	req := c.client.R().SetResult(&fills)

	if _, err := c.post(ctx, body, req); err != nil {
		c.logger.Error("Failed to fetch user fills", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch user fills: %w", err)
	}

	c.logger.Debug("Fetched user fills", zap.String("wallet", wallet), zap.Int("count", len(fills)))
	return fills, nil
}

// clearinghouseStateResponse covers the fields we read from the
// clearinghouseState payload.
type clearinghouseStateResponse struct {
	MarginSummary struct {
		AccountValue string `json:"accountValue"`
	} `json:"marginSummary"`
	AssetPositions []struct {
		Position struct {
			UnrealizedPnl string `json:"unrealizedPnl"`
		} `json:"position"`
	} `json:"assetPositions"`
}

// UserState fetches the wallet's current account value and total unrealized
// P&L across open positions.
func (c *Client) UserState(ctx context.Context, wallet string) (*AccountState, error) {
	body := map[string]any{
		"type": "clearinghouseState",
		"user": wallet,
	}

	var state clearinghouseStateResponse
	req := c.client.R().SetResult(&state)

	if _, err := c.post(ctx, body, req); err != nil {
		c.logger.Error("Failed to fetch account state", zap.String("wallet", wallet), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch account state: %w", err)
	}

	accountValue, err := strconv.ParseFloat(state.MarginSummary.AccountValue, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed account value %q: %w", state.MarginSummary.AccountValue, err)
	}

	var unrealized float64
	for _, ap := range state.AssetPositions {
		pnl, err := strconv.ParseFloat(ap.Position.UnrealizedPnl, 64)
		if err != nil {
			c.logger.Warn("Skipping position with malformed unrealized pnl",
				zap.String("wallet", wallet),
				zap.String("value", ap.Position.UnrealizedPnl))
			continue
		}
		unrealized += pnl
	}

	return &AccountState{AccountValue: accountValue, UnrealizedPnl: unrealized}, nil
}
