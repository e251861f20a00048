package book

import (
	"math"
	"sync"

	"matchcore/internal/common"
)

// locator lets cancellation find a resting order's side/price in O(log P)
// via the index, without scanning either side map.
type locator struct {
	side  common.Side
	price float64
}

// OrderBook is a single symbol's limit order book: two sorted price-level
// maps (bids descending, asks ascending) plus an order-id index for O(log
// P) cancellation, where P is the number of distinct price levels on a
// side. Every resting order is reachable by exactly one index entry; no
// price level is ever left empty.
//
// Each book is single-writer per the source's original concurrency model,
// but this implementation resolves the documented open question by adding
// a mutex: concurrent submissions to the same symbol now serialize here
// rather than racing.
type OrderBook struct {
	symbol string

	mu    sync.Mutex
	bids  *levels
	asks  *levels
	index map[int64]locator

	trades         []common.Trade
	lastTradePrice float64
	totalVolume    uint64
	totalTurnover  float64
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBidLevels(),
		asks:   newAskLevels(),
		index:  make(map[int64]locator),
	}
}

// Symbol returns the book's symbol.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// AddOrder routes order to the matching algorithm for its type and
// returns the trades it generated (possibly none). order is mutated in
// place to reflect its final remaining/filled quantities and status.
func (b *OrderBook) AddOrder(order *common.Order) []common.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch order.Type {
	case common.MarketOrder:
		return b.handleMarket(order)
	case common.IOCOrder:
		return b.handleIOC(order)
	case common.FOCOrder:
		return b.handleFOC(order)
	default:
		return b.handleLimit(order)
	}
}

// CancelOrder removes a resting order by id. Returns false if no resting
// order with that id exists (unknown id, already filled, already
// cancelled) — this is not an error.
func (b *OrderBook) CancelOrder(orderID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	loc, ok := b.index[orderID]
	if !ok {
		return false
	}
	side := b.sideLevels(loc.side)
	lvl, ok := side.get(loc.price)
	if !ok {
		return false
	}
	if !lvl.Remove(orderID) {
		return false
	}
	delete(b.index, orderID)
	if lvl.IsEmpty() {
		side.delete(loc.price)
	}
	return true
}

// handleLimit sweeps with price respected; any remainder rests.
func (b *OrderBook) handleLimit(order *common.Order) []common.Trade {
	trades := b.sweep(order, b.oppositeLevels(order.Side), false)
	if order.RemainingQty > 0 {
		b.rest(order)
	}
	return trades
}

// handleMarket sweeps ignoring price; any remainder is discarded, never
// rests. Final status is FILLED if fully matched, else PARTIALLY_FILLED —
// unconditionally, even if nothing matched at all.
func (b *OrderBook) handleMarket(order *common.Order) []common.Trade {
	trades := b.sweep(order, b.oppositeLevels(order.Side), true)
	if order.RemainingQty == 0 {
		order.Status = common.Filled
	} else {
		order.Status = common.PartiallyFilled
	}
	return trades
}

// handleIOC sweeps with price respected; any remainder is cancelled
// outright (never rests), regardless of how much was filled.
func (b *OrderBook) handleIOC(order *common.Order) []common.Trade {
	trades := b.sweep(order, b.oppositeLevels(order.Side), false)
	if order.RemainingQty > 0 {
		order.Cancel()
	}
	return trades
}

// handleFOC performs a dry-run measurement of crossing liquidity before
// touching book state. If the reachable quantity covers the order in
// full, the real sweep executes (and will complete it entirely); otherwise
// the order is cancelled untouched. This preserves FOC atomicity: no
// partial trade of a FOC order is ever published.
func (b *OrderBook) handleFOC(order *common.Order) []common.Trade {
	opposite := b.oppositeLevels(order.Side)
	if !b.focCanFill(order, opposite) {
		order.Cancel()
		return nil
	}
	return b.sweep(order, opposite, false)
}

// focCanFill walks the opposite book best-first, accumulating crossing
// levels' total quantity until it covers order's remaining quantity or a
// non-crossing level is reached.
func (b *OrderBook) focCanFill(order *common.Order, opposite *levels) bool {
	var sum uint64
	covered := false
	opposite.scanBestFirst(func(lvl *PriceLevel) bool {
		if !crosses(order, lvl.Price()) {
			return false
		}
		sum += lvl.TotalQty()
		if sum >= order.RemainingQty {
			covered = true
			return false
		}
		return true
	})
	return covered
}

// sweep walks opposite in best-first order, matching incoming against
// resting orders until incoming is filled or no eligible level remains.
// When ignorePrice is false, a level only participates if it crosses
// incoming's limit price; the sweep stops at the first non-crossing
// level since levels are visited best-first. Execution price is always
// the resting order's price.
func (b *OrderBook) sweep(incoming *common.Order, opposite *levels, ignorePrice bool) []common.Trade {
	var trades []common.Trade

	for incoming.RemainingQty > 0 {
		lvl, ok := opposite.best()
		if !ok {
			break
		}
		if !ignorePrice && !crosses(incoming, lvl.Price()) {
			break
		}

		for !lvl.IsEmpty() && incoming.RemainingQty > 0 {
			resting, _ := lvl.Peek()
			fill := min(incoming.RemainingQty, resting.RemainingQty)

			var buyID, sellID int64
			if incoming.Side == common.Buy {
				buyID, sellID = incoming.ID, resting.ID
			} else {
				buyID, sellID = resting.ID, incoming.ID
			}
			trade := common.NewTrade(b.symbol, buyID, sellID, lvl.Price(), fill)

			if err := incoming.Fill(fill); err != nil {
				panic(err)
			}
			if err := resting.Fill(fill); err != nil {
				panic(err)
			}
			lvl.OnFill(fill)
			b.recordTrade(trade)
			trades = append(trades, trade)

			if resting.RemainingQty == 0 {
				lvl.Dequeue()
				delete(b.index, resting.ID)
			}
		}

		if lvl.IsEmpty() {
			opposite.delete(lvl.Price())
		}
	}

	return trades
}

// rest places order on its own side at its limit price, indexing it for
// cancellation.
func (b *OrderBook) rest(order *common.Order) {
	side := b.sideLevels(order.Side)
	lvl := side.getOrCreate(order.Price)
	lvl.Enqueue(order)
	b.index[order.ID] = locator{side: order.Side, price: order.Price}
	order.Rest()
}

func (b *OrderBook) recordTrade(t common.Trade) {
	b.trades = append(b.trades, t)
	b.lastTradePrice = t.Price
	b.totalVolume += t.Quantity
	b.totalTurnover += t.Notional()
}

func (b *OrderBook) sideLevels(side common.Side) *levels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeLevels(side common.Side) *levels {
	if side == common.Buy {
		return b.asks
	}
	return b.bids
}

// crosses reports whether incoming's price is compatible with a resting
// level at price: BUY crosses iff incoming.Price >= price, SELL crosses
// iff incoming.Price <= price.
func crosses(incoming *common.Order, price float64) bool {
	if incoming.Side == common.Buy {
		return incoming.Price >= price
	}
	return incoming.Price <= price
}

// --- market-data derivations (read-only) ------------------------------

// BestBid returns the highest resting bid price, or 0 if no bids rest.
func (b *OrderBook) BestBid() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lvl, ok := b.bids.best(); ok {
		return lvl.Price()
	}
	return 0
}

// BestAsk returns the lowest resting ask price, or 0 if no asks rest.
func (b *OrderBook) BestAsk() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lvl, ok := b.asks.best(); ok {
		return lvl.Price()
	}
	return 0
}

// Spread returns BestAsk - BestBid, or NaN if either side is empty.
func (b *OrderBook) Spread() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	bid, bidOk := b.bids.best()
	ask, askOk := b.asks.best()
	if !bidOk || !askOk {
		return math.NaN()
	}
	return ask.Price() - bid.Price()
}

// Mid returns the midpoint of best bid/ask, or NaN if either side is
// empty.
func (b *OrderBook) Mid() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	bid, bidOk := b.bids.best()
	ask, askOk := b.asks.best()
	if !bidOk || !askOk {
		return math.NaN()
	}
	return (bid.Price() + ask.Price()) / 2
}

// VWAP returns total turnover / total volume, or 0 if no volume has
// traded.
func (b *OrderBook) VWAP() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.totalVolume == 0 {
		return 0
	}
	return b.totalTurnover / float64(b.totalVolume)
}

// LastTradePrice returns the most recent trade's price, or 0 if none.
func (b *OrderBook) LastTradePrice() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastTradePrice
}

// TotalVolume returns the cumulative traded quantity.
func (b *OrderBook) TotalVolume() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalVolume
}

// TotalTurnover returns the cumulative sum of price*qty across trades.
func (b *OrderBook) TotalTurnover() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalTurnover
}

// BidDepth returns the count of resting orders on the bid side.
func (b *OrderBook) BidDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.depth()
}

// AskDepth returns the count of resting orders on the ask side.
func (b *OrderBook) AskDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.depth()
}

// TradeHistory returns a copy of the append-only trade log.
func (b *OrderBook) TradeHistory() []common.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]common.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Bids returns resting bid levels, best-first. Intended for tests and
// diagnostics.
func (b *OrderBook) Bids() []*PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.Items()
}

// Asks returns resting ask levels, best-first. Intended for tests and
// diagnostics.
func (b *OrderBook) Asks() []*PriceLevel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.Items()
}
