package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperdash/config"
	"hyperdash/internal/app"
	"hyperdash/internal/domain"
	"hyperdash/internal/metrics"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockProvider struct {
	state  *domain.AccountState
	orders []domain.Order
}

func (m *mockProvider) GetAccountState(ctx context.Context, user string) (*domain.AccountState, error) {
	return m.state, nil
}

func (m *mockProvider) GetOpenOrders(ctx context.Context, user string) ([]domain.Order, error) {
	return m.orders, nil
}

func (m *mockProvider) GetAllMids(ctx context.Context) (map[string]float64, error) {
	return nil, nil
}

func (m *mockProvider) StreamMids(ctx context.Context, handler func(mids map[string]float64), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	doneCh := make(chan struct{})
	stopCh := make(chan struct{})
	close(doneCh)
	return doneCh, stopCh, nil
}

type mockSettings struct {
	fees   domain.FeeSettings
	target float64
}

func (m *mockSettings) GetFeeSettings(ctx context.Context) (domain.FeeSettings, error) {
	return m.fees, nil
}

func (m *mockSettings) SaveFeeSettings(ctx context.Context, fees domain.FeeSettings) error {
	m.fees = fees
	return nil
}

func (m *mockSettings) GetDailyTarget(ctx context.Context) (float64, error) {
	return m.target, nil
}

func (m *mockSettings) SaveDailyTarget(ctx context.Context, targetUSD float64) error {
	m.target = targetUSD
	return nil
}

type mockStats struct {
	days   map[string]*domain.DailyStat
	streak domain.Streak
}

func newMockStats() *mockStats {
	return &mockStats{days: make(map[string]*domain.DailyStat)}
}

func (m *mockStats) GetDailyStat(ctx context.Context, day string) (*domain.DailyStat, error) {
	if stat, ok := m.days[day]; ok {
		cp := *stat
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStats) UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error {
	cp := *stat
	m.days[stat.Day] = &cp
	return nil
}

func (m *mockStats) GetStreak(ctx context.Context) (domain.Streak, error) {
	return m.streak, nil
}

func (m *mockStats) SaveStreak(ctx context.Context, streak domain.Streak) error {
	m.streak = streak
	return nil
}

type testFixture struct {
	server   *Server
	service  *app.DashboardService
	settings *mockSettings
	stats    *mockStats
	provider *mockProvider
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	provider := &mockProvider{
		state: &domain.AccountState{
			AccountValue:    10000,
			TotalMarginUsed: 2500,
			Positions: []domain.Position{
				{Coin: "ETH", SignedSize: 2, EntryPrice: 2500},
			},
		},
		orders: []domain.Order{
			{Coin: "ETH", Type: domain.OrderTypeLimit, ReduceOnly: true, LimitPrice: 2550, Size: 2},
		},
	}
	settings := &mockSettings{fees: domain.FeeSettings{TakerFeePercent: 0.04, MakerFeePercent: 0.012}}
	stats := newMockStats()

	cfg := &config.Config{UserAddress: "0xabc", RefreshInterval: time.Second}
	m := metrics.New()
	service, err := app.NewDashboardService(cfg, &mockLogger{}, provider, settings, stats, nil, m)
	require.NoError(t, err)

	server, err := NewServer(Config{
		Service:  service,
		Settings: settings,
		Stats:    stats,
		Metrics:  m,
		Logger:   &mockLogger{},
	})
	require.NoError(t, err)

	return &testFixture{
		server:   server,
		service:  service,
		settings: settings,
		stats:    stats,
		provider: provider,
	}
}

func (f *testFixture) do(method, path string, body []byte) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.server.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_MissingDependencies(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := newTestFixture(t)
	rec := f.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleAnalysis_NoDataYet(t *testing.T) {
	f := newTestFixture(t)
	rec := f.do(http.MethodGet, "/api/analysis", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no data yet", body["error"])
}

func TestHandleAnalysis_AfterRefresh(t *testing.T) {
	f := newTestFixture(t)
	require.NoError(t, f.service.Refresh(context.Background()))

	rec := f.do(http.MethodGet, "/api/analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		AccountValue        float64
		TotalMarginUsed     float64
		TotalExpectedProfit float64
		TotalExpectedLoss   float64
		Positions           []json.RawMessage
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 10000.0, body.AccountValue, 1e-9)
	assert.InDelta(t, 2500.0, body.TotalMarginUsed, 1e-9)
	assert.InDelta(t, 97.388, body.TotalExpectedProfit, 1e-9)
	assert.Zero(t, body.TotalExpectedLoss)
	assert.Len(t, body.Positions, 1)
}

func TestHandleAnalysis_MethodNotAllowed(t *testing.T) {
	f := newTestFixture(t)
	rec := f.do(http.MethodPost, "/api/analysis", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSettings_GetAndPut(t *testing.T) {
	f := newTestFixture(t)

	rec := f.do(http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		TakerFeePercent float64
		MakerFeePercent float64
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 0.04, got.TakerFeePercent, 1e-9)
	assert.InDelta(t, 0.012, got.MakerFeePercent, 1e-9)

	rec = f.do(http.MethodPut, "/api/settings", []byte(`{"TakerFeePercent":0.05,"MakerFeePercent":0.02}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 0.05, f.settings.fees.TakerFeePercent, 1e-9)
	assert.InDelta(t, 0.02, f.settings.fees.MakerFeePercent, 1e-9)
}

func TestHandleSettings_Validation(t *testing.T) {
	f := newTestFixture(t)

	rec := f.do(http.MethodPut, "/api/settings", []byte(`{"TakerFeePercent":-0.01,"MakerFeePercent":0.02}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/settings", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/api/settings", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleTarget_GetAndPut(t *testing.T) {
	f := newTestFixture(t)

	rec := f.do(http.MethodGet, "/api/target", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct{ TargetUSD float64 }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Zero(t, got.TargetUSD)

	rec = f.do(http.MethodPut, "/api/target", []byte(`{"TargetUSD":250}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 250.0, f.settings.target, 1e-9)
}

func TestHandleTarget_Validation(t *testing.T) {
	f := newTestFixture(t)

	rec := f.do(http.MethodPut, "/api/target", []byte(`{"TargetUSD":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/target", []byte(`{"TargetUSD":-50}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPut, "/api/target", []byte(`{`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStreak(t *testing.T) {
	f := newTestFixture(t)
	f.stats.streak = domain.Streak{Current: 3, Best: 7}

	rec := f.do(http.MethodGet, "/api/streak", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got["current"])
	assert.Equal(t, 7, got["best"])
}

func TestHandleToday(t *testing.T) {
	f := newTestFixture(t)

	rec := f.do(http.MethodGet, "/api/today", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A refresh opens today's row.
	require.NoError(t, f.service.Refresh(context.Background()))

	rec = f.do(http.MethodGet, "/api/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stat domain.DailyStat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stat))
	assert.Equal(t, domain.DayKey(time.Now()), stat.Day)
	assert.InDelta(t, 10000.0, stat.StartEquity, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newTestFixture(t)
	rec := f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hyperdash")
}