package book

import "github.com/tidwall/btree"

// levels is a sorted price -> PriceLevel map, best price first in
// iteration order. bids use a descending comparator so the first entry is
// the highest price; asks use an ascending comparator so the first entry
// is the lowest.
type levels struct {
	tree *btree.BTreeG[*PriceLevel]
}

func newBidLevels() *levels {
	return &levels{
		tree: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.price > b.price // highest buy price sorts first
		}),
	}
}

func newAskLevels() *levels {
	return &levels{
		tree: btree.NewBTreeG(func(a, b *PriceLevel) bool {
			return a.price < b.price // lowest sell price sorts first
		}),
	}
}

func (l *levels) get(price float64) (*PriceLevel, bool) {
	return l.tree.Get(&PriceLevel{price: price})
}

func (l *levels) getOrCreate(price float64) *PriceLevel {
	if lvl, ok := l.get(price); ok {
		return lvl
	}
	lvl := newPriceLevel(price)
	l.tree.Set(lvl)
	return lvl
}

func (l *levels) delete(price float64) {
	l.tree.Delete(&PriceLevel{price: price})
}

// best returns the first (best-priced) level in the map's natural order.
func (l *levels) best() (*PriceLevel, bool) {
	return l.tree.Min()
}

// Len returns the number of distinct price levels.
func (l *levels) Len() int {
	return l.tree.Len()
}

// Items returns all levels in best-first order. Intended for tests and
// diagnostics, not the hot matching path.
func (l *levels) Items() []*PriceLevel {
	items := make([]*PriceLevel, 0, l.tree.Len())
	l.tree.Scan(func(item *PriceLevel) bool {
		items = append(items, item)
		return true
	})
	return items
}

// depth sums the resting order counts across every level on this side.
func (l *levels) depth() int {
	n := 0
	l.tree.Scan(func(item *PriceLevel) bool {
		n += item.OrderCount()
		return true
	})
	return n
}

// scanBestFirst visits levels in best-first order until visit returns
// false or the levels are exhausted.
func (l *levels) scanBestFirst(visit func(*PriceLevel) bool) {
	l.tree.Scan(visit)
}
