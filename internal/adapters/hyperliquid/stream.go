package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"hyperdash/internal/ports"
)

const (
	wsPingInterval = 30 * time.Second
	maxBackoff     = 60 * time.Second
)

// StreamMids starts the allMids websocket stream. The handler receives
// each full mid-price map. The stream reconnects with exponential backoff
// until the context is cancelled, the stop channel is closed, or the
// attempt budget is exhausted; doneCh closes when the stream has fully
// shut down.
func (c *Client) StreamMids(ctx context.Context, handler func(mids map[string]float64), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "StreamMids"
	wsCtx, cancelWs := context.WithCancel(ctx)

	doneCh = make(chan struct{})
	stopCh = make(chan struct{})

	go func() {
		select {
		case <-stopCh:
			cancelWs()
		case <-wsCtx.Done():
		}
	}()

	go func() {
		defer close(doneCh)
		defer cancelWs()

		retry := &backoff.Backoff{
			Min:    c.reconnectDelay,
			Max:    maxBackoff,
			Factor: 2,
			Jitter: true,
		}
		attempts := 0

		for {
			if wsCtx.Err() != nil {
				c.logger.Info(wsCtx, op+": context cancelled, stopping.")
				return
			}

			conn, _, dialErr := websocket.DefaultDialer.DialContext(wsCtx, c.wsURL, nil)
			if dialErr != nil {
				attempts++
				if c.OnReconnect != nil {
					c.OnReconnect()
				}
				wrapped := fmt.Errorf("%s: %w: %v", op, ports.ErrConnectionFailed, dialErr)
				if attempts >= c.maxReconnectAttempts {
					c.logger.Error(wsCtx, dialErr, op+": max reconnection attempts exceeded, giving up.", map[string]interface{}{"maxAttempts": c.maxReconnectAttempts})
					errHandler(wrapped)
					return
				}
				delay := retry.Duration()
				c.logger.Warn(wsCtx, op+": connection failed, retrying.", map[string]interface{}{"attempt": attempts, "delay": delay.String()})
				select {
				case <-time.After(delay):
					continue
				case <-wsCtx.Done():
					return
				}
			}

			attempts = 0
			retry.Reset()
			c.logger.Info(wsCtx, op+": websocket connection established.")

			runErr := c.runMidStream(wsCtx, conn, handler)
			conn.Close()

			if wsCtx.Err() != nil {
				c.logger.Info(wsCtx, op+": context cancelled, stopping websocket.")
				return
			}

			c.logger.Warn(wsCtx, op+": websocket closed unexpectedly, reconnecting.", map[string]interface{}{"error": runErr})
			if c.OnReconnect != nil {
				c.OnReconnect()
			}
			errHandler(fmt.Errorf("%s: %w: %v", op, ports.ErrConnectionFailed, runErr))
		}
	}()

	return doneCh, stopCh, nil
}

// runMidStream subscribes and pumps messages until the connection breaks
// or the context is cancelled.
func (c *Client) runMidStream(ctx context.Context, conn *websocket.Conn, handler func(mids map[string]float64)) error {
	sub := wsSubscribeRequest{
		Method:       "subscribe",
		Subscription: wsSubscription{Type: "allMids"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	readerDone := make(chan struct{})
	defer close(readerDone)

	// Keepalive writer; also closes the connection on cancel to unblock
	// the read loop. The exchange drops connections idle for 60 seconds.
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-readerDone:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(map[string]string{"method": "ping"}); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Channel != "allMids" {
			continue
		}
		mids, err := parseMids(msg.Data.Mids)
		if err != nil {
			c.logger.Error(ctx, err, "StreamMids: dropping malformed mid update")
			continue
		}
		handler(mids)
	}
}
