// Package engine dispatches order submissions to per-symbol books and
// publishes their lifecycle events.
package engine

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"matchcore/internal/book"
	"matchcore/internal/common"
)

// Publisher is the subset of the event bus the engine depends on. Kept as
// an interface so the engine can be tested without a live bus.
type Publisher interface {
	Publish(common.Event)
}

// Engine routes submissions across symbols, lazily creating a book on
// first order for an unseen symbol, and publishes received/terminal/trade
// events for every submission.
type Engine struct {
	bus Publisher

	mu    sync.Mutex
	books map[string]*book.OrderBook

	totalOrders atomic.Int64
	totalTrades atomic.Int64
}

// New constructs an Engine publishing lifecycle events to bus.
func New(bus Publisher) *Engine {
	return &Engine{
		bus:   bus,
		books: make(map[string]*book.OrderBook),
	}
}

// bookFor returns the book for symbol, creating it on first use. The
// registry itself is safe for concurrent insertion even though each
// individual book serializes its own submissions.
func (e *Engine) bookFor(symbol string) *book.OrderBook {
	symbol = strings.ToUpper(symbol)

	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[symbol]
	if !ok {
		b = book.NewOrderBook(symbol)
		e.books[symbol] = b
	}
	return b
}

// Book is a read-only accessor used by the market-data projection to
// reach a symbol's underlying book state on trade notifications. Returns
// false if no order has ever been submitted for the symbol.
func (e *Engine) Book(symbol string) (*book.OrderBook, bool) {
	symbol = strings.ToUpper(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[symbol]
	return b, ok
}

// Submit routes order to its symbol's book and publishes the resulting
// lifecycle events: OrderReceived, each trade in sweep order, then
// exactly one terminal order event. Returns the trades generated
// (possibly empty).
func (e *Engine) Submit(order common.Order) []common.Trade {
	start := time.Now()
	e.totalOrders.Add(1)

	e.bus.Publish(common.NewOrderEvent(common.EventOrderReceived, order))

	b := e.bookFor(order.Symbol)
	trades := b.AddOrder(&order)

	for _, t := range trades {
		e.bus.Publish(common.NewTradeEvent(t))
	}
	e.totalTrades.Add(int64(len(trades)))

	switch order.Status {
	case common.Filled:
		e.bus.Publish(common.NewOrderEvent(common.EventOrderFilled, order))
	case common.Cancelled:
		e.bus.Publish(common.NewOrderEvent(common.EventOrderCancelled, order))
	default:
		e.bus.Publish(common.NewOrderEvent(common.EventOrderOpen, order))
	}

	elapsed := time.Since(start)
	log.Debug().
		Int64("orderID", order.ID).
		Str("symbol", order.Symbol).
		Str("status", order.Status.String()).
		Int("trades", len(trades)).
		Dur("elapsed", elapsed).
		Msg("order submitted")

	return trades
}

// Cancel removes a resting order from its symbol's book. Returns false if
// no book exists for the symbol, or if the book reports no such resting
// order.
//
// Cancel does not publish an OrderCancelled event — this is a documented
// quirk carried over as-is; Submit publishes OrderCancelled when a
// submission (e.g. an unfilled IOC or a failed FOC) itself resolves to
// CANCELLED.
func (e *Engine) Cancel(symbol string, orderID int64) bool {
	b, ok := e.Book(symbol)
	if !ok {
		return false
	}
	return b.CancelOrder(orderID)
}

// Stats reports running totals for external polling.
type Stats struct {
	TotalOrders int64
	TotalTrades int64
}

// Stats returns the engine's order/trade counters.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalOrders: e.totalOrders.Load(),
		TotalTrades: e.totalTrades.Load(),
	}
}
