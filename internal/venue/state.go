// Copyright (c) 2024 Neomantra Corp

package venue

import (
	"log/slog"
	"sync/atomic"
)

// State is an adapter's position in the connection lifecycle:
//
//	Disconnected -> Connecting -> Subscribing -> Streaming -> [Degraded] -> Disconnected
type State uint32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateStreaming
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// StateVar is an atomically readable adapter state with transition
// logging. Failures become transitions here rather than unwinding; the
// adapter's run loop decides what the transition means.
type StateVar struct {
	v      atomic.Uint32
	logger *slog.Logger
}

// NewStateVar starts in StateDisconnected.
func NewStateVar(logger *slog.Logger) *StateVar {
	return &StateVar{logger: logger}
}

// Get returns the current state.
func (s *StateVar) Get() State { return State(s.v.Load()) }

// Set transitions to next, logging the edge.
func (s *StateVar) Set(next State) {
	prev := State(s.v.Swap(uint32(next)))
	if prev != next {
		s.logger.Info("adapter state", "from", prev.String(), "to", next.String())
	}
}
