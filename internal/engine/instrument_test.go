package engine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyr/internal/clock"
	"tyr/internal/common"
	"tyr/internal/engine"
	"tyr/internal/events"
)

const testInstr = "AAPL"

// --- Setup & Helpers --------------------------------------------------------

func newTestEngine() *engine.Engine {
	return engine.New(clock.New())
}

func buy(id, price, qty uint32) common.Command {
	return common.Command{Type: common.CmdBuy, OrderID: id, Instrument: testInstr, Price: price, Quantity: qty}
}

func sell(id, price, qty uint32) common.Command {
	return common.Command{Type: common.CmdSell, OrderID: id, Instrument: testInstr, Price: price, Quantity: qty}
}

func cancel(id uint32) common.Command {
	return common.Command{Type: common.CmdCancel, OrderID: id}
}

func process(t *testing.T, eng *engine.Engine, sink common.EventSink, cmds ...common.Command) {
	t.Helper()
	for _, cmd := range cmds {
		require.NoError(t, eng.Process(cmd, sink))
	}
}

// --- Tests ------------------------------------------------------------------

// TestInstrumentBook_ReferenceScenario walks the canonical partial-fill
// sequence: a resting buy filled twice, the second sell booking its
// remainder.
func TestInstrumentBook_ReferenceScenario(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// 1. Empty book: the buy rests in full.
	process(t, eng, sink, buy(1, 100, 10))

	// 2. A crossing sell for 4 fills partially and books nothing.
	process(t, eng, sink, sell(2, 100, 4))

	// 3. A crossing sell for 10 consumes the remaining 6 and books 4.
	process(t, eng, sink, sell(3, 100, 10))

	expected := []events.Event{
		{Kind: events.KindAdded, OrderID: 1, Instrument: testInstr, Price: 100, Quantity: 10, IsSell: false, Timestamp: 1},
		{Kind: events.KindExecuted, RestingID: 1, IncomingID: 2, ExecutionID: 1, Price: 100, Quantity: 4, Timestamp: 2},
		{Kind: events.KindExecuted, RestingID: 1, IncomingID: 3, ExecutionID: 2, Price: 100, Quantity: 6, Timestamp: 3},
		{Kind: events.KindAdded, OrderID: 3, Instrument: testInstr, Price: 100, Quantity: 4, IsSell: true, Timestamp: 3},
	}
	assert.Equal(t, expected, sink.Events())

	// 4. The buy side drained entirely; the sell remainder rests.
	ib := eng.Instrument(testInstr)
	assert.Equal(t, 0, ib.BuySize())
	assert.Equal(t, 1, ib.SellSize())
}

func TestInstrumentBook_PriceImprovementAccruesToIncoming(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// A sell resting at 95 filled by a buy limit of 100 trades at 95.
	process(t, eng, sink, sell(1, 95, 10))
	process(t, eng, sink, buy(2, 100, 10))

	evs := sink.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindExecuted, evs[1].Kind)
	assert.Equal(t, uint32(95), evs[1].Price)
	assert.Equal(t, uint32(10), evs[1].Quantity)
}

func TestInstrumentBook_MatchesInPriorityOrder(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// 1. Three resting buys across two price levels.
	process(t, eng, sink,
		buy(1, 99, 10),
		buy(2, 100, 10),
		buy(3, 100, 10),
	)

	// 2. A sell sweeping 25 takes the 100s in time order, then part of 99.
	process(t, eng, sink, sell(4, 99, 25))

	evs := sink.Events()[3:]
	require.Len(t, evs, 3)
	assert.Equal(t, uint32(2), evs[0].RestingID)
	assert.Equal(t, uint32(3), evs[1].RestingID)
	assert.Equal(t, uint32(1), evs[2].RestingID)
	assert.Equal(t, uint32(5), evs[2].Quantity)

	// 3. No remainder: no OrderAdded for the sweep, and buy 1 survives.
	for _, ev := range evs {
		assert.Equal(t, events.KindExecuted, ev.Kind)
	}
	assert.Equal(t, 1, eng.Instrument(testInstr).BuySize())
}

func TestInstrumentBook_NonCrossingOrdersRest(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// Sell above the best buy: both rest, nothing trades.
	process(t, eng, sink, buy(1, 99, 10), sell(2, 100, 10))

	for _, ev := range sink.Events() {
		assert.Equal(t, events.KindAdded, ev.Kind)
	}
	ib := eng.Instrument(testInstr)
	assert.Equal(t, 1, ib.BuySize())
	assert.Equal(t, 1, ib.SellSize())
}

func TestInstrumentBook_QuantityConservation(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	process(t, eng, sink,
		buy(1, 100, 7),
		buy(2, 99, 5),
		sell(3, 98, 20),
	)

	// Fills plus booked remainder must equal the requested 20.
	var filled, booked uint32
	for _, ev := range sink.Events() {
		switch {
		case ev.Kind == events.KindExecuted && ev.IncomingID == 3:
			filled += ev.Quantity
		case ev.Kind == events.KindAdded && ev.OrderID == 3:
			booked += ev.Quantity
		}
	}
	assert.Equal(t, uint32(12), filled)
	assert.Equal(t, uint32(8), booked)
}

func TestInstrumentBook_CancelRestingOrder(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// 1. Book a buy, cancel it.
	process(t, eng, sink, buy(1, 100, 10), cancel(1))

	evs := sink.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, events.KindDeleted, evs[1].Kind)
	assert.True(t, evs[1].Accepted)
	assert.Equal(t, 0, eng.Instrument(testInstr).BuySize())

	// 2. A crossing sell no longer matches it.
	process(t, eng, sink, sell(2, 100, 10))
	evs = sink.Events()
	require.Len(t, evs, 3)
	assert.Equal(t, events.KindAdded, evs[2].Kind)
	assert.Equal(t, uint32(10), evs[2].Quantity)

	// 3. A second cancel of the same order is rejected.
	process(t, eng, sink, cancel(1))
	evs = sink.Events()
	assert.Equal(t, events.KindDeleted, evs[3].Kind)
	assert.False(t, evs[3].Accepted)
}

func TestInstrumentBook_CancelFullyFilledOrder(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// The buy fills completely, so its cancel finds nothing to remove.
	process(t, eng, sink,
		sell(1, 100, 10),
		buy(2, 100, 10),
		cancel(2),
	)

	evs := sink.Events()
	last := evs[len(evs)-1]
	assert.Equal(t, events.KindDeleted, last.Kind)
	assert.False(t, last.Accepted)
}

func TestInstrumentBook_CancelPartiallyFilledOrder(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// A partially filled order still rests and can be cancelled.
	process(t, eng, sink,
		buy(1, 100, 10),
		sell(2, 100, 4),
		cancel(1),
	)

	evs := sink.Events()
	last := evs[len(evs)-1]
	assert.Equal(t, events.KindDeleted, last.Kind)
	assert.True(t, last.Accepted)
	assert.Equal(t, 0, eng.Instrument(testInstr).BuySize())
}

// TestInstrumentBook_ConcurrentCrossingStress drives crossing buys and sells
// from opposite goroutines and checks no quantity is double-matched or lost.
func TestInstrumentBook_ConcurrentCrossingStress(t *testing.T) {
	const (
		pairs = 500
		qty   = 10
	)
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint32(0); i < pairs; i++ {
			assert.NoError(t, eng.Process(buy(1+i, 100, qty), sink))
		}
	}()
	go func() {
		defer wg.Done()
		for i := uint32(0); i < pairs; i++ {
			assert.NoError(t, eng.Process(sell(pairs+1+i, 100, qty), sink))
		}
	}()
	wg.Wait()

	// Equal totals at one price must settle completely: every unit trades
	// exactly once and both books drain.
	var executed uint64
	for _, ev := range sink.Events() {
		if ev.Kind == events.KindExecuted {
			executed += uint64(ev.Quantity)
		}
	}
	assert.Equal(t, uint64(pairs*qty), executed)

	ib := eng.Instrument(testInstr)
	assert.Equal(t, 0, ib.BuySize())
	assert.Equal(t, 0, ib.SellSize())
}

// TestInstrumentBook_ConcurrentCancelStress mixes cancels into concurrent
// crossing flow; every unit must end up traded, cancelled, or still resting.
func TestInstrumentBook_ConcurrentCancelStress(t *testing.T) {
	const n = 300
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// 1. Rest n buys.
	for i := uint32(0); i < n; i++ {
		require.NoError(t, eng.Process(buy(1+i, 100, 10), sink))
	}

	// 2. Concurrently cancel them all and sell into them.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := uint32(0); i < n; i++ {
			assert.NoError(t, eng.Process(cancel(1+i), sink))
		}
	}()
	go func() {
		defer wg.Done()
		for i := uint32(0); i < n; i++ {
			assert.NoError(t, eng.Process(sell(n+1+i, 100, 10), sink))
		}
	}()
	wg.Wait()

	// 3. Sell-side conservation: every sell unit either traded against a
	// buy or rests; nothing is double-matched or lost. No sell is ever
	// cancelled here, so booked sell remainders all survive.
	var traded, restingSells uint64
	var addedSells int
	for _, ev := range sink.Events() {
		switch ev.Kind {
		case events.KindExecuted:
			traded += uint64(ev.Quantity)
		case events.KindAdded:
			if ev.IsSell {
				restingSells += uint64(ev.Quantity)
				addedSells++
			}
		}
	}
	assert.Equal(t, uint64(n*10), traded+restingSells)

	// 4. The buy side fully drains: each buy was traded away or cancelled.
	ib := eng.Instrument(testInstr)
	assert.Equal(t, 0, ib.BuySize())
	assert.Equal(t, addedSells, ib.SellSize())
}
