package hyperliquid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWSTestServer serves the allMids stream: it expects a subscribe
// message, then sends the given mid payloads and holds the connection
// open until the client disconnects.
func newWSTestServer(t *testing.T, payloads []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub wsSubscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub.Method != "subscribe" || sub.Subscription.Type != "allMids" {
			return
		}

		for _, p := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(p)); err != nil {
				return
			}
		}

		// Drain pings until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamMids_DeliversUpdates(t *testing.T) {
	srv := newWSTestServer(t, []string{
		`{"channel":"subscriptionResponse","data":{}}`,
		`{"channel":"allMids","data":{"mids":{"ETH":"2501.5","BTC":"60100.0","@1":"0.5"}}}`,
	})

	c, err := New(Config{
		APIURL: "http://unused",
		WSURL:  wsURL(srv),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	midsCh := make(chan map[string]float64, 1)
	doneCh, stopCh, err := c.StreamMids(context.Background(),
		func(mids map[string]float64) {
			select {
			case midsCh <- mids:
			default:
			}
		},
		func(err error) {})
	require.NoError(t, err)

	select {
	case mids := <-midsCh:
		assert.InDelta(t, 2501.5, mids["ETH"], 1e-9)
		assert.InDelta(t, 60100.0, mids["BTC"], 1e-9)
		assert.NotContains(t, mids, "@1")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mid update")
	}

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream shutdown")
	}
}

func TestStreamMids_ContextCancelStopsStream(t *testing.T) {
	srv := newWSTestServer(t, []string{
		`{"channel":"allMids","data":{"mids":{"ETH":"2500.0"}}}`,
	})

	c, err := New(Config{
		APIURL: "http://unused",
		WSURL:  wsURL(srv),
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	gotCh := make(chan struct{}, 1)
	doneCh, _, err := c.StreamMids(ctx,
		func(mids map[string]float64) {
			select {
			case gotCh <- struct{}{}:
			default:
			}
		},
		func(err error) {})
	require.NoError(t, err)

	select {
	case <-gotCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mid update")
	}

	cancel()
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream shutdown")
	}
}

func TestStreamMids_GivesUpAfterMaxAttempts(t *testing.T) {
	c, err := New(Config{
		APIURL:               "http://unused",
		WSURL:                "ws://127.0.0.1:1", // nothing listening
		Logger:               &mockLogger{},
		ReconnectDelay:       time.Millisecond,
		MaxReconnectAttempts: 2,
	})
	require.NoError(t, err)

	var reconnects atomic.Int64
	c.OnReconnect = func() { reconnects.Add(1) }

	errCh := make(chan error, 4)
	doneCh, _, err := c.StreamMids(context.Background(),
		func(mids map[string]float64) {},
		func(err error) { errCh <- err })
	require.NoError(t, err)

	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream to give up")
	}

	select {
	case streamErr := <-errCh:
		assert.Error(t, streamErr)
	default:
		t.Fatal("expected a stream error after exhausting attempts")
	}
	assert.EqualValues(t, 2, reconnects.Load())
}
