package events

import "sync"

// CaptureSink records the event stream in order, safe for concurrent use.
// Tests assert against the captured slice.
type CaptureSink struct {
	mu     sync.Mutex
	events []Event
}

func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) append(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of everything captured so far.
func (s *CaptureSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *CaptureSink) OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64) {
	s.append(Event{
		Kind:       KindAdded,
		OrderID:    orderID,
		Instrument: instrument,
		Price:      price,
		Quantity:   quantity,
		IsSell:     isSell,
		Timestamp:  timestamp,
	})
}

func (s *CaptureSink) OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64) {
	s.append(Event{
		Kind:        KindExecuted,
		RestingID:   restingID,
		IncomingID:  incomingID,
		ExecutionID: executionID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   timestamp,
	})
}

func (s *CaptureSink) OrderDeleted(orderID uint32, accepted bool, timestamp int64) {
	s.append(Event{
		Kind:      KindDeleted,
		OrderID:   orderID,
		Accepted:  accepted,
		Timestamp: timestamp,
	})
}
