package service

import (
	"time"

	"github.com/noah-isme/sep-portal-api/pkg/realtime"
)

// EventPublisher receives change notifications. Delivery is best effort.
type EventPublisher interface {
	Publish(event realtime.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(realtime.Event) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func registrationEvent(eventType, registrationID string, data interface{}) realtime.Event {
	return realtime.Event{Type: eventType, RegistrationID: registrationID, At: time.Now().UTC(), Data: data}
}
