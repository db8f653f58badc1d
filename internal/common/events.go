package common

// EventSink receives the ordered notification stream produced by the matching
// core. Every call carries the logical timestamp allocated for the operation
// that produced it; the core relies on the sink for nothing but delivery.
type EventSink interface {
	// OrderAdded reports a command that booked a non-zero remainder.
	OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64)

	// OrderExecuted reports one resting order consumed by a match. The trade
	// always prices at the resting order.
	OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64)

	// OrderDeleted reports the outcome of a cancel attempt.
	OrderDeleted(orderID uint32, accepted bool, timestamp int64)
}
