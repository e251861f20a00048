package book

import "matchcore/internal/common"

// PriceLevel is a FIFO queue of resting orders sharing one price, with a
// cached sum of their remaining quantities. The cached total always equals
// the sum of RemainingQty across the queued orders.
type PriceLevel struct {
	price  float64
	orders []*common.Order
	total  uint64
}

func newPriceLevel(price float64) *PriceLevel {
	return &PriceLevel{price: price}
}

// Price returns the level's fixed price.
func (l *PriceLevel) Price() float64 {
	return l.price
}

// Enqueue appends an order to the tail and adds its remaining quantity to
// the cached total.
func (l *PriceLevel) Enqueue(o *common.Order) {
	l.orders = append(l.orders, o)
	l.total += o.RemainingQty
}

// Peek returns the head order without removing it.
func (l *PriceLevel) Peek() (*common.Order, bool) {
	if len(l.orders) == 0 {
		return nil, false
	}
	return l.orders[0], true
}

// Dequeue removes the head order and subtracts its remaining quantity from
// the cached total.
func (l *PriceLevel) Dequeue() (*common.Order, bool) {
	if len(l.orders) == 0 {
		return nil, false
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	l.total -= o.RemainingQty
	return o, true
}

// OnFill decrements the cached total by qty, used when a partial fill
// consumes part of the head order that remains in place.
func (l *PriceLevel) OnFill(qty uint64) {
	if qty > l.total {
		l.total = 0
		return
	}
	l.total -= qty
}

// Remove deletes a specific order by id anywhere in the queue. O(k) in the
// level's size, acceptable because cancellation is rare versus matching.
func (l *PriceLevel) Remove(orderID int64) bool {
	for i, o := range l.orders {
		if o.ID == orderID {
			l.total -= o.RemainingQty
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// IsEmpty reports whether the level holds no orders.
func (l *PriceLevel) IsEmpty() bool {
	return len(l.orders) == 0
}

// OrderCount returns the number of resting orders at this level.
func (l *PriceLevel) OrderCount() int {
	return len(l.orders)
}

// TotalQty returns the cached sum of remaining quantities.
func (l *PriceLevel) TotalQty() uint64 {
	return l.total
}
