package events

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes the event stream to a kafka topic as JSON, keyed by
// order id so one order's lifecycle lands in one partition. Delivery
// failures are logged, never propagated: the core relies on a sink for
// nothing but delivery, and a broker outage must not stall matching.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func (s *KafkaSink) publish(keyID uint32, ev Event) {
	value, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("unable to encode event")
		return
	}

	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, keyID)

	if err := s.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   key,
		Value: value,
	}); err != nil {
		log.Error().Err(err).Str("kind", string(ev.Kind)).Msg("unable to publish event")
	}
}

func (s *KafkaSink) OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64) {
	s.publish(orderID, Event{
		Kind:       KindAdded,
		OrderID:    orderID,
		Instrument: instrument,
		Price:      price,
		Quantity:   quantity,
		IsSell:     isSell,
		Timestamp:  timestamp,
	})
}

func (s *KafkaSink) OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64) {
	s.publish(restingID, Event{
		Kind:        KindExecuted,
		RestingID:   restingID,
		IncomingID:  incomingID,
		ExecutionID: executionID,
		Price:       price,
		Quantity:    quantity,
		Timestamp:   timestamp,
	})
}

func (s *KafkaSink) OrderDeleted(orderID uint32, accepted bool, timestamp int64) {
	s.publish(orderID, Event{
		Kind:      KindDeleted,
		OrderID:   orderID,
		Accepted:  accepted,
		Timestamp: timestamp,
	})
}
