package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"hyperdash/internal/domain"
	"hyperdash/internal/ports"
)

const (
	baseURLMainnet = "https://api.hyperliquid.xyz"
	wsURLMainnet   = "wss://api.hyperliquid.xyz/ws"

	defaultHTTPTimeout = 10 * time.Second
)

// Client implements the ports.AccountDataProvider interface against the
// Hyperliquid info API.
type Client struct {
	apiURL               string
	wsURL                string
	httpClient           *http.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int

	// Optional hook invoked on each websocket reconnect attempt.
	OnReconnect func()
}

// Config holds configuration specific to the Hyperliquid client adapter.
type Config struct {
	APIURL               string        // Defaults to the mainnet REST endpoint
	WSURL                string        // Defaults to the mainnet websocket endpoint
	Logger               ports.Logger
	HTTPTimeout          time.Duration
	ReconnectDelay       time.Duration // Initial websocket reconnect delay
	MaxReconnectAttempts int           // Max consecutive failed attempts before giving up
}

// New creates a new Hyperliquid client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Hyperliquid client")
	}

	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = baseURLMainnet
	}
	wsURL := cfg.WSURL
	if wsURL == "" {
		wsURL = wsURLMainnet
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	cfg.Logger.Info(context.Background(), "Hyperliquid client configured", map[string]interface{}{"apiURL": apiURL, "wsURL": wsURL})

	return &Client{
		apiURL:               apiURL,
		wsURL:                wsURL,
		httpClient:           &http.Client{Timeout: timeout},
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// post sends an info request and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, req infoRequest, out interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", req.Type, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/info", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", req.Type, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.transportError(req.Type, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %w: %s", req.Type, ports.ErrRateLimited, strings.TrimSpace(string(data)))
		case resp.StatusCode >= 500:
			return fmt.Errorf("%s: %w: status %d", req.Type, ports.ErrExchangeUnavailable, resp.StatusCode)
		default:
			return fmt.Errorf("%s: %w: status %d: %s", req.Type, ports.ErrInvalidRequest, resp.StatusCode, strings.TrimSpace(string(data)))
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decode: %v", req.Type, ports.ErrInvalidResponse, err)
	}
	return nil
}

// transportError maps network-level failures onto the standard port errors.
func (c *Client) transportError(operation string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", operation, ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %v", operation, ports.ErrContextCanceled, err)
	default:
		return fmt.Errorf("%s: %w: %v", operation, ports.ErrConnectionFailed, err)
	}
}

// GetAccountState retrieves equity, margin usage, and open positions.
func (c *Client) GetAccountState(ctx context.Context, user string) (*domain.AccountState, error) {
	op := "clearinghouseState"
	var resp clearinghouseStateResponse
	if err := c.post(ctx, infoRequest{Type: op, User: user}, &resp); err != nil {
		return nil, err
	}

	accountValue, err := parsePx(resp.MarginSummary.AccountValue, "accountValue")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	marginUsed, err := parsePx(resp.MarginSummary.TotalMarginUsed, "totalMarginUsed")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	state := &domain.AccountState{
		AccountValue:    accountValue,
		TotalMarginUsed: marginUsed,
		Positions:       make([]domain.Position, 0, len(resp.AssetPositions)),
	}

	for _, ap := range resp.AssetPositions {
		szi, err := parsePx(ap.Position.Szi, "szi")
		if err != nil {
			return nil, fmt.Errorf("%s: coin %s: %w", op, ap.Position.Coin, err)
		}
		if szi == 0 {
			// Flat entries occasionally appear after a just-closed position.
			continue
		}
		entryPx, err := parsePx(ap.Position.EntryPx, "entryPx")
		if err != nil {
			return nil, fmt.Errorf("%s: coin %s: %w", op, ap.Position.Coin, err)
		}
		state.Positions = append(state.Positions, domain.Position{
			Coin:       ap.Position.Coin,
			SignedSize: szi,
			EntryPrice: entryPx,
		})
	}

	c.logger.Debug(ctx, "Fetched account state", map[string]interface{}{"positions": len(state.Positions), "accountValue": accountValue})
	return state, nil
}

// GetOpenOrders retrieves the open orders for the given wallet address.
func (c *Client) GetOpenOrders(ctx context.Context, user string) ([]domain.Order, error) {
	op := "frontendOpenOrders"
	var resp []wireOrder
	if err := c.post(ctx, infoRequest{Type: op, User: user}, &resp); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(resp))
	for _, wo := range resp {
		limitPx, err := parsePx(wo.LimitPx, "limitPx")
		if err != nil {
			return nil, fmt.Errorf("%s: oid %d: %w", op, wo.Oid, err)
		}
		sz, err := parsePx(wo.Sz, "sz")
		if err != nil {
			return nil, fmt.Errorf("%s: oid %d: %w", op, wo.Oid, err)
		}

		var triggerPx float64
		if wo.IsTrigger && wo.TriggerPx != "" {
			triggerPx, err = parsePx(wo.TriggerPx, "triggerPx")
			if err != nil {
				return nil, fmt.Errorf("%s: oid %d: %w", op, wo.Oid, err)
			}
		}

		orders = append(orders, domain.Order{
			Coin:         wo.Coin,
			Type:         normalizeOrderType(wo.OrderType),
			ReduceOnly:   wo.ReduceOnly,
			LimitPrice:   limitPx,
			TriggerPrice: triggerPx,
			Size:         sz,
		})
	}

	c.logger.Debug(ctx, "Fetched open orders", map[string]interface{}{"orders": len(orders)})
	return orders, nil
}

// GetAllMids retrieves the current mid price for every listed coin.
func (c *Client) GetAllMids(ctx context.Context) (map[string]float64, error) {
	op := "allMids"
	var resp map[string]string
	if err := c.post(ctx, infoRequest{Type: op}, &resp); err != nil {
		return nil, err
	}
	return parseMids(resp)
}

// normalizeOrderType maps the exchange's spaced order type strings onto
// the domain enum ("Stop Market" -> "StopMarket"). Unrecognized types
// pass through with spaces stripped and are ignored by the analysis
// engine's classification.
func normalizeOrderType(s string) domain.OrderType {
	return domain.OrderType(strings.ReplaceAll(s, " ", ""))
}

// parsePx parses one of the API's numeric strings. Malformed values are
// reported as invalid responses rather than silently zeroed; the analysis
// engine assumes well-formed inputs.
func parsePx(s, field string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s value %q", ports.ErrInvalidResponse, field, s)
	}
	return d.InexactFloat64(), nil
}

// parseMids converts a coin->price-string map into floats, skipping the
// "@<index>" synthetic spot pair keys.
func parseMids(raw map[string]string) (map[string]float64, error) {
	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		if strings.HasPrefix(coin, "@") {
			continue
		}
		v, err := parsePx(px, "mid:"+coin)
		if err != nil {
			return nil, err
		}
		mids[coin] = v
	}
	return mids, nil
}
