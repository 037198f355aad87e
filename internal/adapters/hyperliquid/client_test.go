package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperdash/internal/domain"
	"hyperdash/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)
	return c, srv
}

func TestNew_RequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestGetAccountState(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/info", r.URL.Path)

		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "clearinghouseState", req.Type)
		require.Equal(t, "0xabc", req.User)

		resp := `{
			"marginSummary": {"accountValue": "12345.67", "totalMarginUsed": "2500.0"},
			"assetPositions": [
				{"type": "oneWay", "position": {"coin": "ETH", "szi": "2.0", "entryPx": "2500.0"}},
				{"type": "oneWay", "position": {"coin": "BTC", "szi": "-0.5", "entryPx": "60000.0"}},
				{"type": "oneWay", "position": {"coin": "SOL", "szi": "0.0", "entryPx": "150.0"}}
			]
		}`
		w.Write([]byte(resp))
	})

	state, err := c.GetAccountState(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.InDelta(t, 12345.67, state.AccountValue, 1e-9)
	assert.InDelta(t, 2500.0, state.TotalMarginUsed, 1e-9)

	// Flat SOL entry is dropped.
	require.Len(t, state.Positions, 2)
	assert.Equal(t, domain.Position{Coin: "ETH", SignedSize: 2, EntryPrice: 2500}, state.Positions[0])
	assert.Equal(t, domain.Position{Coin: "BTC", SignedSize: -0.5, EntryPrice: 60000}, state.Positions[1])
}

func TestGetOpenOrders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "frontendOpenOrders", req.Type)

		resp := `[
			{"coin": "ETH", "orderType": "Limit", "reduceOnly": true, "limitPx": "2550.0", "isTrigger": false, "triggerPx": "0.0", "sz": "2.0", "oid": 1},
			{"coin": "ETH", "orderType": "Stop Market", "reduceOnly": true, "limitPx": "0.0", "isTrigger": true, "triggerPx": "2400.0", "sz": "2.0", "oid": 2},
			{"coin": "BTC", "orderType": "Take Profit Market", "reduceOnly": true, "limitPx": "70000.0", "isTrigger": true, "triggerPx": "70000.0", "sz": "0.5", "oid": 3}
		]`
		w.Write([]byte(resp))
	})

	orders, err := c.GetOpenOrders(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, orders, 3)

	assert.Equal(t, domain.OrderTypeLimit, orders[0].Type)
	assert.True(t, orders[0].ReduceOnly)
	assert.InDelta(t, 2550.0, orders[0].LimitPrice, 1e-9)
	assert.Zero(t, orders[0].TriggerPrice)

	assert.Equal(t, domain.OrderTypeStopMarket, orders[1].Type)
	assert.InDelta(t, 2400.0, orders[1].TriggerPrice, 1e-9)

	// Unknown types survive normalization but match neither enum value.
	assert.Equal(t, domain.OrderType("TakeProfitMarket"), orders[2].Type)
	assert.False(t, orders[2].IsTakeProfit())
	assert.False(t, orders[2].IsStopLoss())
}

func TestGetAllMids(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ETH": "2500.5", "BTC": "60000.0", "@1": "1.001"}`))
	})

	mids, err := c.GetAllMids(context.Background())
	require.NoError(t, err)

	// Synthetic spot pair keys are skipped.
	require.Len(t, mids, 2)
	assert.InDelta(t, 2500.5, mids["ETH"], 1e-9)
	assert.InDelta(t, 60000.0, mids["BTC"], 1e-9)
}

func TestPost_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ports.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, wantErr: ports.ErrExchangeUnavailable},
		{name: "bad request", status: http.StatusUnprocessableEntity, wantErr: ports.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.GetAllMids(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGetAccountState_MalformedNumber(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"marginSummary": {"accountValue": "not-a-number", "totalMarginUsed": "0"}, "assetPositions": []}`))
	})

	_, err := c.GetAccountState(context.Background(), "0xabc")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrInvalidResponse)
}

func TestNormalizeOrderType(t *testing.T) {
	assert.Equal(t, domain.OrderTypeLimit, normalizeOrderType("Limit"))
	assert.Equal(t, domain.OrderTypeStopMarket, normalizeOrderType("Stop Market"))
	assert.Equal(t, domain.OrderType("StopLimit"), normalizeOrderType("Stop Limit"))
}
