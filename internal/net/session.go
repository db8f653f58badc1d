package net

import (
	"net"
	"sync"

	"github.com/rs/zerolog"

	"tyr/internal/events"
)

// session is one connected client. It doubles as the EventSink delivering
// that client's events back over its own connection; writes are serialized
// so frames never interleave.
type session struct {
	id      string
	conn    net.Conn
	log     zerolog.Logger
	writeMu sync.Mutex
}

func (s *session) deliver(ev events.Event) {
	frame, err := SerializeEvent(ev)
	if err != nil {
		s.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("unable to serialize event")
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write(frame); err != nil {
		// The read loop notices the dead connection and tears the session
		// down; delivery failure must not disturb the matching pass.
		s.log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("unable to deliver event")
	}
}

func (s *session) OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64) {
	s.deliver(events.Event{
		Kind:       events.KindAdded,
		OrderID:    orderID,
		Instrument: instrument,
		Price:      price,
		Quantity:   quantity,
		IsSell:     isSell,
		Timestamp:  timestamp,
	})
}

func (s *session) OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64) {
	s.deliver(events.Event{
		Kind:        events.KindExecuted,
		RestingID:   restingID,
		IncomingID:  incomingID,
		ExecutionID: executionID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   timestamp,
	})
}

func (s *session) OrderDeleted(orderID uint32, accepted bool, timestamp int64) {
	s.deliver(events.Event{
		Kind:      events.KindDeleted,
		OrderID:   orderID,
		Accepted:  accepted,
		Timestamp: timestamp,
	})
}
