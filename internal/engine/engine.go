// Package engine is the matching core: per-instrument books, the
// match/book/cancel protocols, and the routing that hands each command to
// its instrument. Instruments share nothing but the logical clock, so they
// process in full parallelism.
package engine

import (
	"errors"

	"tyr/internal/clock"
	"tyr/internal/common"
)

// ErrUnknownCommand reports a command whose type the core does not process.
// It is a session-level fault for the transport layer to deal with, never an
// acknowledged order.
var ErrUnknownCommand = errors.New("unknown command type")

type Engine struct {
	clk *clock.Clock

	// instruments routes an instrument key to its book, created on first
	// use. orders is the process-wide registry mapping an order id to the
	// command that created it, consulted only to resolve a cancel's
	// instrument.
	instruments *shardedMap[uint64, *InstrumentBook]
	orders      *shardedMap[uint32, common.Command]
}

func New(clk *clock.Clock) *Engine {
	return &Engine{
		clk:         clk,
		instruments: newShardedMap[uint64, *InstrumentBook](hashUint64),
		orders:      newShardedMap[uint32, common.Command](hashUint32),
	}
}

// Process executes one command to completion, emitting its events to sink.
// Expected user-level outcomes (including a cancel of an unknown order) are
// surfaced as events; only a malformed command type is an error.
func (e *Engine) Process(cmd common.Command, sink common.EventSink) error {
	switch cmd.Type {
	case common.CmdBuy:
		e.orders.Store(cmd.OrderID, cmd)
		e.Instrument(cmd.Instrument).ProcessBuy(cmd, sink)
	case common.CmdSell:
		e.orders.Store(cmd.OrderID, cmd)
		e.Instrument(cmd.Instrument).ProcessSell(cmd, sink)
	case common.CmdCancel:
		origin, ok := e.orders.Load(cmd.OrderID)
		if !ok {
			// A cancel carries no instrument, so an order the registry has
			// never seen cannot even be routed. Still a normal outcome.
			sink.OrderDeleted(cmd.OrderID, false, e.clk.Next())
			return nil
		}
		e.Instrument(origin.Instrument).ProcessCancel(cmd, sink)
	default:
		return ErrUnknownCommand
	}
	return nil
}

// Instrument resolves a symbol to its book, creating it lazily. Symbols are
// clamped to the wire width before keying, so over-long symbols fold onto
// their 8-byte prefix by construction.
func (e *Engine) Instrument(symbol string) *InstrumentBook {
	symbol = common.TruncateSymbol(symbol)
	key := common.InstrumentKey(symbol)
	return e.instruments.LoadOrCreate(key, func() *InstrumentBook {
		return newInstrumentBook(symbol, e.clk)
	})
}

// InstrumentCount reports how many instruments have traded, for
// introspection and tests.
func (e *Engine) InstrumentCount() int {
	return e.instruments.Len()
}

// KnownOrder reports whether an order id has ever been accepted, for tests.
func (e *Engine) KnownOrder(orderID uint32) bool {
	_, ok := e.orders.Load(orderID)
	return ok
}
