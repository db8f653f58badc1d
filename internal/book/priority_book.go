// Package book implements the ordered container of resting orders for one
// side of one instrument. Orders are held in strict price-time priority:
// cheapest-then-earliest first on the sell side, most-aggressive-then-earliest
// first on the buy side.
//
// Every operation is individually atomic under the book's own lock. Scan
// consumes a copy-on-write snapshot so a multi-step read-then-decide caller
// never holds the book lock while deciding; such a caller must detect
// concurrent mutation itself (the instrument book's counter-recheck protocol
// does exactly that).
package book

import (
	"fmt"
	"sync"

	"github.com/tidwall/btree"

	"tyr/internal/common"
)

type Book struct {
	side common.Side
	mu   sync.RWMutex
	tree *btree.BTreeG[Order]
}

// New creates an empty book for one side.
func New(side common.Side) *Book {
	return &Book{
		side: side,
		tree: btree.NewBTreeGOptions(lessFor(side), btree.Options{NoLocks: true}),
	}
}

// lessFor builds the side's priority comparator. Sell: ascending price then
// ascending insertion time. Buy: descending price then ascending insertion
// time.
func lessFor(side common.Side) func(a, b Order) bool {
	if side == common.Sell {
		return func(a, b Order) bool {
			if a.Price == b.Price {
				return a.InsertedAt < b.InsertedAt
			}
			return a.Price < b.Price
		}
	}
	return func(a, b Order) bool {
		if a.Price == b.Price {
			return a.InsertedAt < b.InsertedAt
		}
		return a.Price > b.Price
	}
}

func (b *Book) Side() common.Side {
	return b.side
}

// assertSide is the precondition at the package boundary: an order of the
// wrong side reaching a book is a routing defect, not a user-facing error.
func (b *Book) assertSide(o Order) {
	if o.Side != b.side {
		panic(fmt.Sprintf("book: %s order %d offered to %s book", o.Side, o.ID, b.side))
	}
}

// Insert adds a resting order. Inserting an order whose identity is already
// present indicates double-booking and panics.
func (b *Book) Insert(o Order) {
	b.assertSide(o)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, replaced := b.tree.Set(o); replaced {
		panic(fmt.Sprintf("book: order %d double-booked at price %d", o.ID, o.Price))
	}
}

// Erase removes a resting order if present, no-op otherwise.
func (b *Book) Erase(o Order) {
	b.assertSide(o)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tree.Delete(o)
}

// Find looks an order up by identity and returns its authoritative state.
func (b *Book) Find(o Order) (Order, bool) {
	b.assertSide(o)
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.tree.Get(o)
}

func (b *Book) Contains(o Order) bool {
	_, ok := b.Find(o)
	return ok
}

func (b *Book) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.tree.Len()
}

// Scan walks a consistent snapshot of the book in priority order, stopping
// when fn returns false. The snapshot is taken at the moment of call; the
// lock is not held while fn runs.
func (b *Book) Scan(fn func(Order) bool) {
	b.mu.RLock()
	snap := b.tree.Copy()
	b.mu.RUnlock()

	snap.Scan(fn)
}

// Reduce applies one fill to a matched resting order: it is removed and,
// when the fill leaves quantity behind, re-booked with the reduced quantity
// and a bumped execution id. The pre-fill authoritative state is returned so
// the caller can emit the trade with the execution id and price the fill
// settled at.
//
// The matched order must still be present; the instrument book's retry
// protocol guarantees that, so absence is an invariant violation.
func (b *Book) Reduce(o Order, quantity uint32) Order {
	b.assertSide(o)
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.tree.Get(o)
	if !ok {
		panic(fmt.Sprintf("book: matched order %d missing at fill time", o.ID))
	}
	if quantity > cur.Remaining {
		panic(fmt.Sprintf("book: fill of %d exceeds remaining %d on order %d", quantity, cur.Remaining, cur.ID))
	}

	b.tree.Delete(cur)
	if cur.Remaining > quantity {
		survivor := cur
		survivor.Remaining -= quantity
		survivor.ExecutionID++
		b.tree.Set(survivor)
	}
	return cur
}
