package observability

// EventEnvelope is the wire shape for room events published to the broker.
type EventEnvelope struct {
	EventType string            `json:"event_type"`
	EventName string            `json:"event_name"`
	Payload   any               `json:"payload"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// BuildHeaders assembles correlation headers, omitting empty values.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	if requestID != "" {
		headers["request_id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
