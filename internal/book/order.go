package book

import "tyr/internal/common"

// Order is a resting order. While resting it lives in exactly one side's
// book of exactly one instrument; it is removed the instant its remaining
// quantity reaches zero or it is cancelled.
//
// Identity within a book is (Price, InsertedAt): the logical clock hands out
// one timestamp per booking operation and an operation books at most one
// order, so no two resting orders of a side share the pair.
type Order struct {
	Side        common.Side
	ID          uint32
	Price       uint32 // venue tick units
	Remaining   uint32 // > 0 while resting
	ExecutionID uint32 // starts at 1, bumped each time the order survives a partial fill
	InsertedAt  int64  // logical timestamp, price tie-break
}
