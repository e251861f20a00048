// Package exchange composes the matching engine, event bus and
// market-data service into the single exported entry point described by
// the core's external interface.
package exchange

import (
	"matchcore/internal/common"
	"matchcore/internal/engine"
	"matchcore/internal/eventbus"
	"matchcore/internal/marketdata"
)

// Exchange is the sole external entry point: submit orders, cancel resting
// orders, read market-data snapshots, and shut down cleanly.
type Exchange struct {
	bus    *eventbus.Bus
	engine *engine.Engine
	md     *marketdata.Service
}

// Option configures an Exchange at construction.
type Option func(*config)

type config struct {
	queueCapacity int
}

// WithQueueCapacity overrides the event bus's bounded queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *config) { c.queueCapacity = n }
}

// New wires a bus, engine and market-data service together and returns
// the facade.
func New(opts ...Option) *Exchange {
	cfg := config{queueCapacity: eventbus.DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	bus := eventbus.New(cfg.queueCapacity)
	eng := engine.New(bus)
	md := marketdata.New(eng, bus)

	return &Exchange{bus: bus, engine: eng, md: md}
}

// Submit validates and constructs an order from the given parameters and
// routes it through the matching engine. A validation error (blank
// symbol, non-positive quantity, non-positive price for LIMIT/IOC/FOC)
// rejects the order before it ever reaches a book.
func (e *Exchange) Submit(symbol string, side common.Side, typ common.OrderType, price float64, qty uint64) ([]common.Trade, error) {
	order, err := common.NewOrder(symbol, side, typ, price, qty)
	if err != nil {
		return nil, err
	}
	return e.engine.Submit(order), nil
}

// Cancel cancels a resting order. Returns true iff a resting order was
// found and removed.
func (e *Exchange) Cancel(symbol string, orderID int64) bool {
	return e.engine.Cancel(symbol, orderID)
}

// Snapshot returns the latest market-data snapshot for symbol, if any
// trade has occurred for it yet.
func (e *Exchange) Snapshot(symbol string) (marketdata.Snapshot, bool) {
	return e.md.GetSnapshot(symbol)
}

// Stats returns the engine's running order/trade counters.
func (e *Exchange) Stats() engine.Stats {
	return e.engine.Stats()
}

// Subscribe registers fn for every event of kind published by the
// exchange's event bus. Intended for outer layers (e.g. a wire-protocol
// server) that need to react to trades and terminal order events without
// sitting on the matching hot path.
func (e *Exchange) Subscribe(kind common.EventKind, fn func(common.Event)) {
	e.bus.Subscribe(kind, fn)
}

// Shutdown drains the event bus and reports how many events were dropped
// over its lifetime.
func (e *Exchange) Shutdown() int64 {
	return e.bus.Shutdown()
}
