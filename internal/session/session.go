// Package session provides the authenticated brokerage capability the
// acquisition pipeline consumes: login with certificate activation, the
// contract catalog, per-day tick queries, and range k-bar queries.
//
// Shioaji ships no Go SDK, so the session itself lives in a sidecar bridge
// process reached over HTTP; BridgeClient is the only implementation the
// binaries wire in. The pipeline depends solely on the Session interface.
package session

import (
	"context"
	"time"

	"txgather/internal/domain"
)

// Session is the authenticated brokerage capability. Login must be safe to
// call repeatedly: re-invoking it against an already-valid session is a
// no-op on the broker side.
type Session interface {
	// Login authenticates and activates the trading certificate.
	Login(ctx context.Context) error

	// Contracts returns the futures contract catalog for a root symbol,
	// spread instruments included.
	Contracts(ctx context.Context, symbol string) ([]domain.Contract, error)

	// Ticks returns all trade ticks for one contract on one calendar day,
	// ordered as emitted by the feed. A day without trading yields nil.
	Ticks(ctx context.Context, contract domain.Contract, day time.Time) ([]domain.Tick, error)

	// KBars returns broker-aggregated 1-minute bars for one contract over an
	// inclusive date range.
	KBars(ctx context.Context, contract domain.Contract, start, end time.Time) ([]domain.Bar, error)
}
