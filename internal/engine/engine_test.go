package engine_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyr/internal/common"
	"tyr/internal/engine"
	"tyr/internal/events"
)

func TestEngine_UnknownCommandRejected(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	err := eng.Process(common.Command{Type: common.CommandType(42), OrderID: 1}, sink)

	// Rejected outright: no acknowledgement of any kind.
	assert.ErrorIs(t, err, engine.ErrUnknownCommand)
	assert.Empty(t, sink.Events())
}

func TestEngine_CancelUnknownOrder(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// 1. A cancel for an order the venue has never seen.
	process(t, eng, sink, cancel(99))

	evs := sink.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindDeleted, evs[0].Kind)
	assert.Equal(t, uint32(99), evs[0].OrderID)
	assert.False(t, evs[0].Accepted)

	// 2. The session keeps processing: the next command works normally.
	process(t, eng, sink, buy(1, 100, 10))
	assert.Len(t, sink.Events(), 2)
}

func TestEngine_CancelRoutedThroughRegistry(t *testing.T) {
	eng := newTestEngine()
	sink := events.NewCaptureSink()

	// A cancel carries no instrument; the registry resolves it to the book
	// the order was placed on.
	process(t, eng, sink,
		common.Command{Type: common.CmdBuy, OrderID: 1, Instrument: "NVDA", Price: 100, Quantity: 10},
		cancel(1),
	)

	evs := sink.Events()
	require.Len(t, evs, 2)
	assert.True(t, evs[1].Accepted)
	assert.Equal(t, 0, eng.Instrument("NVDA").BuySize())
	assert.True(t, eng.KnownOrder(1))
}

func TestEngine_SymbolTruncation(t *testing.T) {
	eng := newTestEngine()

	// Symbols folding onto the same 8-byte prefix share one book.
	a := eng.Instrument("LONGSYMBOL")
	b := eng.Instrument("LONGSYMB")

	assert.Same(t, a, b)
	assert.Equal(t, "LONGSYMB", a.Symbol())
	assert.Equal(t, 1, eng.InstrumentCount())
}

func TestEngine_InstrumentsAreIndependent(t *testing.T) {
	eng := newTestEngine()

	// Distinct symbols get distinct books.
	assert.NotSame(t, eng.Instrument("AAPL"), eng.Instrument("NVDA"))
	assert.Equal(t, 2, eng.InstrumentCount())
}

// TestEngine_ConcurrentInstrumentIsolation trades two instruments from
// concurrent sessions and checks neither observes the other's state.
func TestEngine_ConcurrentInstrumentIsolation(t *testing.T) {
	const pairs = 300
	eng := newTestEngine()

	symbols := []string{"AAPL", "NVDA"}
	sinks := map[string]*events.CaptureSink{
		"AAPL": events.NewCaptureSink(),
		"NVDA": events.NewCaptureSink(),
	}

	var wg sync.WaitGroup
	for idx, symbol := range symbols {
		wg.Add(2)
		base := uint32(idx * 10 * pairs)
		go func(symbol string, base uint32) {
			defer wg.Done()
			for i := uint32(0); i < pairs; i++ {
				assert.NoError(t, eng.Process(common.Command{
					Type: common.CmdBuy, OrderID: base + 1 + i,
					Instrument: symbol, Price: 100, Quantity: 5,
				}, sinks[symbol]))
			}
		}(symbol, base)
		go func(symbol string, base uint32) {
			defer wg.Done()
			for i := uint32(0); i < pairs; i++ {
				assert.NoError(t, eng.Process(common.Command{
					Type: common.CmdSell, OrderID: base + pairs + 1 + i,
					Instrument: symbol, Price: 100, Quantity: 5,
				}, sinks[symbol]))
			}
		}(symbol, base)
	}
	wg.Wait()

	for _, symbol := range symbols {
		// Per-instrument conservation holds independently, and no event
		// leaked across books.
		var executed uint64
		for _, ev := range sinks[symbol].Events() {
			if ev.Kind == events.KindAdded {
				assert.Equal(t, symbol, ev.Instrument)
			}
			if ev.Kind == events.KindExecuted {
				executed += uint64(ev.Quantity)
			}
		}
		assert.Equal(t, uint64(pairs*5), executed, "instrument %s", symbol)

		ib := eng.Instrument(symbol)
		assert.Equal(t, 0, ib.BuySize())
		assert.Equal(t, 0, ib.SellSize())
	}
}
