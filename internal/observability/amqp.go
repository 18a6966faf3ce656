package observability

import "context"

// Publisher is the event sink used by PublishEvent. The concrete publisher
// lives in the rabbitmq package; a nil default makes publishing a no-op.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

var defaultPublisher Publisher

func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

func PublishEvent(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.Publish(ctx, routingKey, withHeaders(message, headers))
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}

func withHeaders(message interface{}, headers map[string]string) interface{} {
	if len(headers) == 0 {
		return message
	}
	if envelope, ok := message.(EventEnvelope); ok {
		envelope.Headers = headers
		return envelope
	}
	return message
}
