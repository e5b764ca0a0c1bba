package domain

// TrafficMessage is one row of the exchange dump log. Message holds the raw
// JSON payload exactly as it was captured.
type TrafficMessage struct {
	TraceID     string `json:"trace_id"`
	Direction   string `json:"direction"`
	MessageName string `json:"message_name"`
	MessageKind string `json:"message_kind"`
	Message     string `json:"message"`
}

// TrafficFilter selects the messages that can carry fee information.
type TrafficFilter struct {
	Direction   string
	MessageName string
	MessageKind string
}

func (f TrafficFilter) Eligible(m *TrafficMessage) bool {
	return m.Direction == f.Direction &&
		m.MessageName == f.MessageName &&
		m.MessageKind == f.MessageKind
}
