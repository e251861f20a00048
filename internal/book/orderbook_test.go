package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
)

// seed places a resting LIMIT order directly and returns it.
func seed(t *testing.T, b *OrderBook, side common.Side, price float64, qty uint64) common.Order {
	t.Helper()
	o, err := common.NewOrder("TEST", side, common.LimitOrder, price, qty)
	require.NoError(t, err)
	b.AddOrder(&o)
	return o
}

func submit(t *testing.T, b *OrderBook, side common.Side, typ common.OrderType, price float64, qty uint64) (common.Order, []common.Trade) {
	t.Helper()
	o, err := common.NewOrder("TEST", side, typ, price, qty)
	require.NoError(t, err)
	trades := b.AddOrder(&o)
	return o, trades
}

// S1 — LIMIT exact fill at maker price.
func TestScenario_S1_ExactFillAtMakerPrice(t *testing.T) {
	b := NewOrderBook("TEST")
	sell := seed(t, b, common.Sell, 100.0, 100)

	buy, trades := submit(t, b, common.Buy, common.LimitOrder, 101.0, 100)

	require.Len(t, trades, 1)
	assert.Equal(t, uint64(100), trades[0].Quantity)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, common.Filled, buy.Status)

	_, ok := b.index[sell.ID]
	assert.False(t, ok, "sell should have left the index once filled")
}

// S2 — Partial fill rests remainder.
func TestScenario_S2_PartialFillRestsRemainder(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 50)

	buy, trades := submit(t, b, common.Buy, common.LimitOrder, 100.0, 150)

	require.Len(t, trades, 1)
	assert.Equal(t, uint64(50), trades[0].Quantity)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, common.PartiallyFilled, buy.Status)
	assert.Equal(t, uint64(100), buy.RemainingQty)
	assert.Equal(t, 100.0, b.BestBid())
}

// S3 — Time priority within a level.
func TestScenario_S3_TimePriorityWithinLevel(t *testing.T) {
	b := NewOrderBook("TEST")
	a := seed(t, b, common.Sell, 100.0, 50)
	_ = seed(t, b, common.Sell, 100.0, 50)

	_, trades := submit(t, b, common.Buy, common.LimitOrder, 100.0, 50)

	require.Len(t, trades, 1)
	assert.Equal(t, a.ID, trades[0].SellOrderID)

	lvl, ok := b.asks.get(100.0)
	require.True(t, ok)
	require.Equal(t, 1, lvl.OrderCount())
	head, ok := lvl.Peek()
	require.True(t, ok)
	assert.Equal(t, uint64(50), head.RemainingQty)
	assert.Equal(t, common.Open, head.Status)
}

// S4 — IOC partial then cancel remainder.
func TestScenario_S4_IOCPartialThenCancel(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 60)

	ioc, trades := submit(t, b, common.Buy, common.IOCOrder, 100.0, 200)

	require.Len(t, trades, 1)
	assert.Equal(t, uint64(60), trades[0].Quantity)
	assert.Equal(t, common.Cancelled, ioc.Status)
	assert.Equal(t, 0.0, b.BestBid())
}

// S5 — FOC cancelled when liquidity insufficient.
func TestScenario_S5_FOCCancelledOnInsufficientLiquidity(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 50)

	foc, trades := submit(t, b, common.Buy, common.FOCOrder, 100.0, 200)

	assert.Empty(t, trades)
	assert.Equal(t, common.Cancelled, foc.Status)
	assert.Equal(t, uint64(50), b.asks.Items()[0].TotalQty())
	assert.Equal(t, 100.0, b.BestAsk())
}

// S6 — VWAP across a multi-level sweep.
func TestScenario_S6_VWAPAcrossSweep(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 100)
	seed(t, b, common.Sell, 102.0, 100)

	_, trades := submit(t, b, common.Buy, common.LimitOrder, 102.0, 200)

	require.Len(t, trades, 2)
	assert.Equal(t, 100.0, trades[0].Price)
	assert.Equal(t, 102.0, trades[1].Price)
	assert.InDelta(t, 101.0, b.VWAP(), 1e-9)
	assert.Equal(t, uint64(200), b.TotalVolume())
}

func TestFOCFullyFillsWhenLiquiditySufficient(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 100)
	seed(t, b, common.Sell, 101.0, 100)

	foc, trades := submit(t, b, common.Buy, common.FOCOrder, 101.0, 150)

	require.Len(t, trades, 2)
	assert.Equal(t, common.Filled, foc.Status)
	assert.Equal(t, uint64(150), foc.FilledQty)
}

func TestMarketOrderNeverRestsAndDiscardsRemainder(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 30)

	mkt, trades := submit(t, b, common.Buy, common.MarketOrder, 0, 100)

	require.Len(t, trades, 1)
	assert.Equal(t, common.PartiallyFilled, mkt.Status)
	assert.Equal(t, uint64(70), mkt.RemainingQty)
	assert.Equal(t, 0, b.AskDepth())
}

func TestMarketOrderIntoEmptyBookIsPartiallyFilled(t *testing.T) {
	b := NewOrderBook("TEST")
	mkt, trades := submit(t, b, common.Buy, common.MarketOrder, 0, 10)

	assert.Empty(t, trades)
	assert.Equal(t, common.PartiallyFilled, mkt.Status)
}

func TestLimitIntoEmptyBookRests(t *testing.T) {
	b := NewOrderBook("TEST")
	buy, trades := submit(t, b, common.Buy, common.LimitOrder, 99.0, 10)

	assert.Empty(t, trades)
	assert.Equal(t, common.Open, buy.Status)
	assert.Equal(t, 99.0, b.BestBid())
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
	b := NewOrderBook("TEST")
	o := seed(t, b, common.Buy, 50.0, 10)

	assert.True(t, b.CancelOrder(o.ID))
	assert.False(t, b.CancelOrder(o.ID))
	assert.Equal(t, 0.0, b.BestBid())
}

func TestCancelUnknownIDReturnsFalse(t *testing.T) {
	b := NewOrderBook("TEST")
	assert.False(t, b.CancelOrder(999_999))
}

func TestCancelDrainsEmptyLevel(t *testing.T) {
	b := NewOrderBook("TEST")
	o := seed(t, b, common.Buy, 50.0, 10)

	require.True(t, b.CancelOrder(o.ID))
	assert.Equal(t, 0, b.bids.Len())
}

func TestMultiLevelSweepDeepIntoBook(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 100)
	seed(t, b, common.Sell, 101.0, 150)

	_, trades := submit(t, b, common.Buy, common.LimitOrder, 103.0, 200)
	require.Len(t, trades, 2)

	asks := b.Asks()
	require.Len(t, asks, 1)
	assert.Equal(t, 101.0, asks[0].Price())
	assert.Equal(t, uint64(50), asks[0].TotalQty())
}

// Invariant: quantity conservation for every order at every observable
// point.
func TestInvariant_QuantityConservation(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 40)
	seed(t, b, common.Sell, 100.0, 40)

	buy, trades := submit(t, b, common.Buy, common.LimitOrder, 100.0, 60)
	require.NotEmpty(t, trades)
	assert.Equal(t, buy.OriginalQty, buy.RemainingQty+buy.FilledQty)
}

// Invariant: execution always at the resting (maker) order's price, never
// the taker's.
func TestInvariant_ExecutionAtMakerPrice(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 95.0, 10)

	_, trades := submit(t, b, common.Buy, common.LimitOrder, 120.0, 10)
	require.Len(t, trades, 1)
	assert.Equal(t, 95.0, trades[0].Price)
}

// Invariant: no resting IOC/MARKET/FOC order after submit returns.
func TestInvariant_NoRestingNonLimitTypes(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 100.0, 200)

	submit(t, b, common.Buy, common.IOCOrder, 100.0, 5)
	submit(t, b, common.Buy, common.MarketOrder, 0, 5)
	submit(t, b, common.Buy, common.FOCOrder, 100.0, 5)

	assert.Equal(t, 0, b.BidDepth())
}

func TestInvariant_MarketDataIdentities(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Sell, 10.0, 10)
	seed(t, b, common.Sell, 12.0, 10)

	_, trades := submit(t, b, common.Buy, common.LimitOrder, 12.0, 20)
	require.Len(t, trades, 2)

	var wantVolume uint64
	var wantTurnover float64
	for _, tr := range trades {
		wantVolume += tr.Quantity
		wantTurnover += tr.Notional()
	}
	assert.Equal(t, wantVolume, b.TotalVolume())
	assert.InDelta(t, wantTurnover, b.TotalTurnover(), 1e-9)
	assert.InDelta(t, wantTurnover/float64(wantVolume), b.VWAP(), 1e-9)
}

func TestSpreadAndMidNaNWhenSideEmpty(t *testing.T) {
	b := NewOrderBook("TEST")
	seed(t, b, common.Buy, 10.0, 5)

	assert.True(t, isNaN(b.Spread()))
	assert.True(t, isNaN(b.Mid()))
}

func isNaN(f float64) bool { return f != f }
