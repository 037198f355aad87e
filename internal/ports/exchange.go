package ports

import (
	"context"

	"hyperdash/internal/domain"
)

// AccountDataProvider defines the interface for reading account state and
// market data from the exchange. This abstraction decouples the dashboard
// logic from the Hyperliquid API surface.
type AccountDataProvider interface {
	// GetAccountState retrieves equity, margin usage, and open positions
	// for the given wallet address.
	GetAccountState(ctx context.Context, user string) (*domain.AccountState, error)

	// GetOpenOrders retrieves the open orders for the given wallet address.
	GetOpenOrders(ctx context.Context, user string) ([]domain.Order, error)

	// GetAllMids retrieves the current mid price for every listed coin.
	GetAllMids(ctx context.Context) (map[string]float64, error)

	// StreamMids starts a stream of mid-price updates. The handler is
	// invoked with each full mid map; errHandler receives stream errors.
	// Returns channels to observe and control the stream lifecycle, or an
	// error if the initial connection fails.
	StreamMids(ctx context.Context, handler func(mids map[string]float64), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

// Notifier delivers user-facing alerts (e.g., daily target reached).
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}
