package events

import "github.com/rs/zerolog"

// LogSink writes each event through zerolog, useful when running without
// kafka or when debugging a session.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) OrderAdded(orderID uint32, instrument string, price, quantity uint32, isSell bool, timestamp int64) {
	s.log.Info().
		Uint32("order_id", orderID).
		Str("instrument", instrument).
		Uint32("price", price).
		Uint32("quantity", quantity).
		Bool("is_sell", isSell).
		Int64("ts", timestamp).
		Msg("order added")
}

func (s *LogSink) OrderExecuted(restingID, incomingID, executionID uint32, price, quantity uint32, timestamp int64) {
	s.log.Info().
		Uint32("resting_id", restingID).
		Uint32("incoming_id", incomingID).
		Uint32("execution_id", executionID).
		Uint32("price", price).
		Uint32("quantity", quantity).
		Int64("ts", timestamp).
		Msg("order executed")
}

func (s *LogSink) OrderDeleted(orderID uint32, accepted bool, timestamp int64) {
	s.log.Info().
		Uint32("order_id", orderID).
		Bool("accepted", accepted).
		Int64("ts", timestamp).
		Msg("order deleted")
}
