package common

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

var (
	orderSeq     atomic.Int64
	processEpoch = time.Now()
)

// monotonicNanos returns nanoseconds elapsed since an arbitrary point fixed
// at process start. Only relative ordering between captures matters.
func monotonicNanos() int64 {
	return time.Since(processEpoch).Nanoseconds()
}

func nextOrderID() int64 {
	return orderSeq.Add(1)
}

// Order is the mutable execution state of a single submission. Identity
// (ID, Timestamp) is fixed at construction; everything else mutates only
// through the owning book's matching or cancellation paths.
type Order struct {
	ID           int64
	Symbol       string
	Side         Side
	Type         OrderType
	Price        float64
	OriginalQty  uint64
	RemainingQty uint64
	FilledQty    uint64
	Status       Status
	Timestamp    int64
}

// NewOrder validates and constructs an Order. MARKET orders ignore price
// (it is the zero-value sentinel 0). Validation failure returns a non-nil
// error and a zero Order; the caller must not route it to a book.
func NewOrder(symbol string, side Side, typ OrderType, price float64, qty uint64) (Order, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Order{}, ErrBlankSymbol
	}
	if side != Buy && side != Sell {
		return Order{}, ErrUnknownSide
	}
	switch typ {
	case LimitOrder, MarketOrder, IOCOrder, FOCOrder:
	default:
		return Order{}, ErrUnknownOrderType
	}
	if qty == 0 {
		return Order{}, ErrInvalidQuantity
	}
	if typ == MarketOrder {
		price = 0
	} else if price <= 0 {
		return Order{}, ErrInvalidPrice
	}

	return Order{
		ID:           nextOrderID(),
		Symbol:       symbol,
		Side:         side,
		Type:         typ,
		Price:        price,
		OriginalQty:  qty,
		RemainingQty: qty,
		FilledQty:    0,
		Status:       New,
		Timestamp:    monotonicNanos(),
	}, nil
}

// Fill decrements RemainingQty and increments FilledQty by qty, updating
// Status. qty must be in (0, RemainingQty].
func (o *Order) Fill(qty uint64) error {
	if qty == 0 || qty > o.RemainingQty {
		return ErrFillInvariant
	}
	o.RemainingQty -= qty
	o.FilledQty += qty
	if o.RemainingQty == 0 {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}
	return nil
}

// Rest marks the order as resting on the book at its limit price. An order
// that already absorbed a partial fill before resting keeps its
// PARTIALLY_FILLED status rather than reverting to OPEN.
func (o *Order) Rest() {
	if o.FilledQty == 0 {
		o.Status = Open
	}
}

// Cancel marks the order cancelled. A FILLED order must never be
// cancelled; callers are expected to have already excluded that case via
// the book's index (a filled order has no index entry).
func (o *Order) Cancel() {
	o.Status = Cancelled
}

// IsRestable reports whether the order's type may legally sit on a book:
// LIMIT only. The order's status is not consulted.
func (o Order) IsRestable() bool {
	return o.Type == LimitOrder
}

func (o Order) String() string {
	return fmt.Sprintf(
		"Order{ID:%d Symbol:%s Side:%s Type:%s Price:%.4f Remaining:%d Filled:%d/%d Status:%s}",
		o.ID, o.Symbol, o.Side, o.Type, o.Price, o.RemainingQty, o.FilledQty, o.OriginalQty, o.Status,
	)
}
