package engine

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"tyr/internal/book"
	"tyr/internal/clock"
	"tyr/internal/common"
	"tyr/internal/metrics"
)

// InstrumentBook owns both sides of one instrument's book and the protocol
// that lets buy-side and sell-side activity run in parallel without
// corrupting state or double-matching quantity.
//
// Locking discipline, in acquisition order:
//
//   - buyMu serializes buy processing and cancels of resting sells;
//     sellMu serializes sell processing and cancels of resting buys.
//     The two never block each other.
//   - ctrMu guards the commit phase: the counter recheck, the timestamp
//     allocation and the booking of a remainder happen under it, so a match
//     recomputed there cannot conflict again.
//   - each side's book locks internally; book locks are only taken while
//     ctrMu is held (booking) or after it is released (fill application),
//     never the other way round, so no circular wait exists.
//
// Mutation counters advance on every book mutation an operation performs.
// A match pass snapshots both counters before computing its candidate fills
// against a book snapshot; if either counter moved by commit time the
// candidate is stale and is recomputed exactly once.
type InstrumentBook struct {
	symbol string
	clk    *clock.Clock

	buyMu  sync.Mutex
	sellMu sync.Mutex

	ctrMu   sync.Mutex
	buyCtr  atomic.Uint64
	sellCtr atomic.Uint64

	buys  *book.Book
	sells *book.Book

	// lastAdded caches the state each order had when last booked. It only
	// tells a cancel which side to lock; the books stay authoritative and
	// the cache is re-validated before anything is erased.
	lastAdded *shardedMap[uint32, book.Order]
}

func newInstrumentBook(symbol string, clk *clock.Clock) *InstrumentBook {
	return &InstrumentBook{
		symbol:    symbol,
		clk:       clk,
		buys:      book.New(common.Buy),
		sells:     book.New(common.Sell),
		lastAdded: newShardedMap[uint32, book.Order](hashUint32),
	}
}

func (ib *InstrumentBook) Symbol() string {
	return ib.symbol
}

// BuySize and SellSize are snapshot reads, used by tests and introspection.
func (ib *InstrumentBook) BuySize() int  { return ib.buys.Size() }
func (ib *InstrumentBook) SellSize() int { return ib.sells.Size() }

// ProcessBuy matches an incoming buy against resting sells and books any
// remainder on the buy side.
func (ib *InstrumentBook) ProcessBuy(cmd common.Command, sink common.EventSink) {
	ib.buyMu.Lock()
	defer ib.buyMu.Unlock()

	ib.runMatch(cmd, common.Buy, sink)
}

// ProcessSell is the exact mirror of ProcessBuy.
func (ib *InstrumentBook) ProcessSell(cmd common.Command, sink common.EventSink) {
	ib.sellMu.Lock()
	defer ib.sellMu.Unlock()

	ib.runMatch(cmd, common.Sell, sink)
}

// fill pairs a matched resting order snapshot with the quantity taken off
// it. The snapshot is a candidate until the commit phase validates it.
type fill struct {
	resting  book.Order
	quantity uint32
}

// runMatch is the two-phase match-and-book transaction. The caller holds the
// incoming side's processing mutex.
func (ib *InstrumentBook) runMatch(cmd common.Command, side common.Side, sink common.EventSink) {
	own, opp := ib.buys, ib.sells
	ownCtr, oppCtr := &ib.buyCtr, &ib.sellCtr
	if side == common.Sell {
		own, opp = ib.sells, ib.buys
		ownCtr, oppCtr = &ib.sellCtr, &ib.buyCtr
	}

	// Compute phase: candidate fills against a snapshot, remembering the
	// versions the candidate was computed from.
	buySeen, sellSeen := ib.buyCtr.Load(), ib.sellCtr.Load()
	fills, remainder := appendMatches(cmd, opp)

	// Commit phase. While ctrMu is held the opposite side can neither book
	// a remainder nor have one of its resting orders cancelled, so a
	// recomputed candidate is final.
	ib.ctrMu.Lock()
	if ib.buyCtr.Load() != buySeen || ib.sellCtr.Load() != sellSeen {
		metrics.MatchRetries.Inc()
		log.Debug().
			Str("instrument", ib.symbol).
			Uint32("order_id", cmd.OrderID).
			Msg("book changed during match pass, recomputing")
		fills, remainder = appendMatches(cmd, opp)
	}

	// One timestamp for the whole operation; every event below carries it.
	timestamp := ib.clk.Next()

	booked := false
	if remainder > 0 {
		order := book.Order{
			Side:        side,
			ID:          cmd.OrderID,
			Price:       cmd.Price,
			Remaining:   remainder,
			ExecutionID: 1,
			InsertedAt:  timestamp,
		}
		own.Insert(order)
		ib.lastAdded.Store(cmd.OrderID, order)
		ownCtr.Add(1)
		booked = true
	}
	ib.ctrMu.Unlock()

	// Apply fills to the opposite book. Presence is guaranteed by the retry
	// protocol; Reduce panics if that invariant is broken.
	for _, f := range fills {
		rec := opp.Reduce(f.resting, f.quantity)
		oppCtr.Add(1)
		sink.OrderExecuted(rec.ID, cmd.OrderID, rec.ExecutionID, rec.Price, f.quantity, timestamp)
	}

	if booked {
		sink.OrderAdded(cmd.OrderID, ib.symbol, cmd.Price, remainder, side == common.Sell, timestamp)
	}
}

// appendMatches walks the opposite book in priority order, accumulating
// fills while requested quantity lasts and prices cross, and returns the
// unmatched remainder. One fill per resting order touched, never merged or
// split further.
func appendMatches(cmd common.Command, opp *book.Book) ([]fill, uint32) {
	quantity := cmd.Quantity
	var fills []fill
	opp.Scan(func(o book.Order) bool {
		if quantity == 0 {
			return false
		}
		// Stop at the first non-crossing order: the book is priority
		// ordered, nothing behind it can cross either.
		if o.Side == common.Buy && o.Price < cmd.Price {
			return false
		}
		if o.Side == common.Sell && o.Price > cmd.Price {
			return false
		}
		matched := min(quantity, o.Remaining)
		fills = append(fills, fill{resting: o, quantity: matched})
		quantity -= matched
		return true
	})
	return fills, quantity
}

// ProcessCancel removes a resting order if it still rests. An unknown or
// already-settled order is a normal outcome, reported as a rejected delete.
func (ib *InstrumentBook) ProcessCancel(cmd common.Command, sink common.EventSink) {
	cached, ok := ib.lastAdded.Load(cmd.OrderID)
	if !ok {
		// Never booked here (fully filled on arrival, or never seen).
		sink.OrderDeleted(cmd.OrderID, false, ib.clk.Next())
		return
	}

	switch cached.Side {
	case common.Sell:
		// Removing a resting sell must not race a buy pass that may be
		// about to fill it, so it runs as a buy-side transaction.
		ib.cancelResting(cached, ib.sells, &ib.sellCtr, &ib.buyMu, sink)
	case common.Buy:
		ib.cancelResting(cached, ib.buys, &ib.buyCtr, &ib.sellMu, sink)
	}
}

func (ib *InstrumentBook) cancelResting(cached book.Order, bk *book.Book, ctr *atomic.Uint64, procMu *sync.Mutex, sink common.EventSink) {
	procMu.Lock()
	defer procMu.Unlock()
	ib.ctrMu.Lock()
	defer ib.ctrMu.Unlock()

	timestamp := ib.clk.Next()

	// The cache may be stale: the order can have been fully filled since it
	// was booked. Only the book itself decides.
	cur, ok := bk.Find(cached)
	if !ok {
		sink.OrderDeleted(cached.ID, false, timestamp)
		return
	}
	bk.Erase(cur)
	ctr.Add(1)
	sink.OrderDeleted(cur.ID, true, timestamp)
}
