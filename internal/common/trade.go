package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

var tradeSeq atomic.Int64

func nextTradeID() int64 {
	return tradeSeq.Add(1)
}

// Trade is an immutable execution record. Price is always the resting
// (maker) order's limit price.
type Trade struct {
	ID          int64
	Symbol      string
	BuyOrderID  int64
	SellOrderID int64
	Price       float64
	Quantity    uint64
	Timestamp   int64
	At          time.Time
}

// NewTrade mints a trade with a fresh monotonic id and both a monotonic and
// wall-clock timestamp.
func NewTrade(symbol string, buyOrderID, sellOrderID int64, price float64, qty uint64) Trade {
	return Trade{
		ID:          nextTradeID(),
		Symbol:      symbol,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		Price:       price,
		Quantity:    qty,
		Timestamp:   monotonicNanos(),
		At:          time.Now(),
	}
}

// Notional returns price * quantity.
func (t Trade) Notional() float64 {
	return t.Price * float64(t.Quantity)
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{ID:%d Symbol:%s Buy:%d Sell:%d Price:%.4f Qty:%d}",
		t.ID, t.Symbol, t.BuyOrderID, t.SellOrderID, t.Price, t.Quantity,
	)
}
