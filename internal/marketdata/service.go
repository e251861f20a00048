// Package marketdata derives a per-symbol snapshot (best bid/ask, spread,
// mid, VWAP, volume, depth) from trade events and serves it to readers.
package marketdata

import (
	"math"
	"sync"
	"time"

	"matchcore/internal/book"
	"matchcore/internal/common"
)

// BookAccessor is the subset of the engine the service needs to reach a
// symbol's underlying book state on trade notifications.
type BookAccessor interface {
	Book(symbol string) (*book.OrderBook, bool)
}

// Subscribable is the subset of the event bus the service needs to
// register for Trade events.
type Subscribable interface {
	Subscribe(kind common.EventKind, fn func(common.Event))
}

// Snapshot is an immutable per-symbol projection of book state. Spread and
// Mid are normalized to 0 when either side of the book is empty (the raw
// book-level derivations instead report NaN — see book.OrderBook.Spread).
type Snapshot struct {
	Symbol         string
	BestBid        float64
	BestAsk        float64
	Spread         float64
	Mid            float64
	LastTradePrice float64
	VWAP           float64
	TotalVolume    uint64
	BidDepth       int
	AskDepth       int
	CapturedAt     time.Time
}

// Service subscribes to Trade events at construction and refreshes a
// snapshot per symbol whenever one arrives.
type Service struct {
	books BookAccessor

	mu        sync.RWMutex
	snapshots map[string]Snapshot
}

// New constructs a Service that reads book state from books and
// subscribes to Trade events on bus.
func New(books BookAccessor, bus Subscribable) *Service {
	s := &Service{
		books:     books,
		snapshots: make(map[string]Snapshot),
	}
	bus.Subscribe(common.EventTrade, s.onTrade)
	return s
}

func (s *Service) onTrade(event common.Event) {
	if event.Trade == nil {
		return
	}
	symbol := event.Trade.Symbol
	b, ok := s.books.Book(symbol)
	if !ok {
		return
	}
	snap := buildSnapshot(b)

	s.mu.Lock()
	s.snapshots[symbol] = snap
	s.mu.Unlock()
}

func buildSnapshot(b *book.OrderBook) Snapshot {
	spread := b.Spread()
	if math.IsNaN(spread) {
		spread = 0
	}
	mid := b.Mid()
	if math.IsNaN(mid) {
		mid = 0
	}
	return Snapshot{
		Symbol:         b.Symbol(),
		BestBid:        b.BestBid(),
		BestAsk:        b.BestAsk(),
		Spread:         spread,
		Mid:            mid,
		LastTradePrice: b.LastTradePrice(),
		VWAP:           b.VWAP(),
		TotalVolume:    b.TotalVolume(),
		BidDepth:       b.BidDepth(),
		AskDepth:       b.AskDepth(),
		CapturedAt:     time.Now(),
	}
}

// GetSnapshot returns the latest snapshot for symbol, if one has ever been
// captured. Safe for concurrent calls alongside the dispatcher's writes.
func (s *Service) GetSnapshot(symbol string) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[symbol]
	return snap, ok
}
