// Copyright (c) 2024 Neomantra Corp
//
// Watcher drives one eth_subscribe log filter through the adapter state
// machine: subscribe, stream, detect staleness, tear down, back off,
// resubscribe. Reset handling mirrors the reconnect loop the CEX feeds
// use; the invalidation side effect is the caller's via OnReset.

package evm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/dawsh2/alphapulse/internal/venue"
	"github.com/dawsh2/alphapulse/pkg/wire"
)

const (
	// DefaultStaleAfter triggers a reset when an active subscription goes
	// silent: no message in 60s for watched instruments means the feed is
	// degraded even if the socket looks healthy.
	DefaultStaleAfter = 60 * time.Second

	minBackoff = 100 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Watcher subscribes to query and hands each log to Handle. OnReset is
// invoked with the reason whenever streaming stops (disconnect or
// staleness) before the watcher backs off and resubscribes.
type Watcher struct {
	Backend    Backend
	Query      ethereum.FilterQuery
	Handle     func(ethtypes.Log)
	OnReset    func(reason wire.InvalidationReason)
	State      *venue.StateVar
	Logger     *slog.Logger
	StaleAfter time.Duration
}

// Run blocks until ctx is cancelled, maintaining the subscription across
// failures with exponential backoff.
func (w *Watcher) Run(ctx context.Context) error {
	staleAfter := w.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	backoff := minBackoff

	for {
		reason, err := w.streamOnce(ctx, staleAfter)
		w.State.Set(venue.StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if w.OnReset != nil {
			w.OnReset(reason)
		}
		w.Logger.Warn("log stream reset", "reason", reason, "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (w *Watcher) streamOnce(ctx context.Context, staleAfter time.Duration) (wire.InvalidationReason, error) {
	w.State.Set(venue.StateConnecting)
	logs := make(chan ethtypes.Log, 256)

	w.State.Set(venue.StateSubscribing)
	sub, err := w.Backend.SubscribeFilterLogs(ctx, w.Query, logs)
	if err != nil {
		return wire.InvalidationReason_Disconnection, err
	}
	defer sub.Unsubscribe()

	w.State.Set(venue.StateStreaming)
	stale := time.NewTimer(staleAfter)
	defer stale.Stop()

	for {
		select {
		case <-ctx.Done():
			return wire.InvalidationReason_Disconnection, ctx.Err()
		case err := <-sub.Err():
			return wire.InvalidationReason_Disconnection, err
		case <-stale.C:
			w.State.Set(venue.StateDegraded)
			return wire.InvalidationReason_Staleness, nil
		case lg := <-logs:
			if !stale.Stop() {
				<-stale.C
			}
			stale.Reset(staleAfter)
			w.Handle(lg)
		}
	}
}
