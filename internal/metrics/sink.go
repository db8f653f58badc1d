package metrics

// Sink counts the event stream. Tee it next to the delivery sinks so the
// counters see exactly what clients see.
type Sink struct{}

func (Sink) OrderAdded(_ uint32, _ string, _, _ uint32, _ bool, _ int64) {
	OrdersAdded.Inc()
}

func (Sink) OrderExecuted(_, _, _ uint32, _, quantity uint32, _ int64) {
	OrdersExecuted.Inc()
	QuantityTraded.Add(float64(quantity))
}

func (Sink) OrderDeleted(_ uint32, accepted bool, _ int64) {
	if accepted {
		CancelsAccepted.Inc()
	} else {
		CancelsRejected.Inc()
	}
}
