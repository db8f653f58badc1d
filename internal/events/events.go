// Package events carries the sink implementations the venue fans its
// notification stream out to: client sessions (via the net package), the
// structured log, kafka, metrics, and test captures.
package events

import "tyr/internal/common"

type Kind string

const (
	KindAdded    Kind = "order_added"
	KindExecuted Kind = "order_executed"
	KindDeleted  Kind = "order_deleted"
)

// Event is the flattened form of one sink callback, used where the stream
// needs to be stored or encoded rather than delivered call-by-call.
type Event struct {
	Kind        Kind   `json:"kind"`
	OrderID     uint32 `json:"order_id,omitempty"`
	Instrument  string `json:"instrument,omitempty"`
	RestingID   uint32 `json:"resting_id,omitempty"`
	IncomingID  uint32 `json:"incoming_id,omitempty"`
	ExecutionID uint32 `json:"execution_id,omitempty"`
	Price       uint32 `json:"price,omitempty"`
	Quantity    uint32 `json:"quantity,omitempty"`
	IsSell      bool   `json:"is_sell,omitempty"`
	Accepted    bool   `json:"accepted"`
	Timestamp   int64  `json:"timestamp"`
}

// MultiSink delivers each event to every sink, in order.
type MultiSink []common.EventSink

func (m MultiSink) OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64) {
	for _, s := range m {
		s.OrderAdded(orderID, instrument, price, quantity, isSell, timestamp)
	}
}

func (m MultiSink) OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64) {
	for _, s := range m {
		s.OrderExecuted(restingID, incomingID, executionID, price, quantity, timestamp)
	}
}

func (m MultiSink) OrderDeleted(orderID uint32, accepted bool, timestamp int64) {
	for _, s := range m {
		s.OrderDeleted(orderID, accepted, timestamp)
	}
}
