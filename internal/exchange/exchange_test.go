package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/internal/common"
)

func TestSubmitRejectsInvalidOrder(t *testing.T) {
	ex := New()
	defer ex.Shutdown()

	_, err := ex.Submit("", common.Buy, common.LimitOrder, 10, 5)
	assert.ErrorIs(t, err, common.ErrBlankSymbol)

	_, err = ex.Submit("TEST", common.Buy, common.LimitOrder, 10, 0)
	assert.ErrorIs(t, err, common.ErrInvalidQuantity)

	_, err = ex.Submit("TEST", common.Buy, common.LimitOrder, 0, 5)
	assert.ErrorIs(t, err, common.ErrInvalidPrice)
}

func TestSubmitAndSnapshotEndToEnd(t *testing.T) {
	ex := New()
	defer ex.Shutdown()

	_, err := ex.Submit("TEST", common.Sell, common.LimitOrder, 100.0, 100)
	require.NoError(t, err)

	trades, err := ex.Submit("TEST", common.Buy, common.LimitOrder, 100.0, 40)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 100.0, trades[0].Price)

	require.Eventually(t, func() bool {
		snap, ok := ex.Snapshot("TEST")
		return ok && snap.TotalVolume == 40
	}, time.Second, time.Millisecond, "snapshot should refresh after the trade is dispatched")

	snap, ok := ex.Snapshot("TEST")
	require.True(t, ok)
	assert.Equal(t, 100.0, snap.BestAsk)
	assert.Equal(t, 100.0, snap.LastTradePrice)
}

func TestCancelThroughFacade(t *testing.T) {
	ex := New()
	defer ex.Shutdown()

	trades, err := ex.Submit("TEST", common.Buy, common.LimitOrder, 10.0, 5)
	require.NoError(t, err)
	require.Empty(t, trades)

	stats := ex.Stats()
	require.Equal(t, int64(1), stats.TotalOrders)

	assert.False(t, ex.Cancel("TEST", 999_999_999))
}

func TestShutdownReportsDroppedEvents(t *testing.T) {
	ex := New(WithQueueCapacity(1))
	dropped := ex.Shutdown()
	assert.GreaterOrEqual(t, dropped, int64(0))
}
