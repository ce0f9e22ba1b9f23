package interfaces

import (
	"context"

	"github.com/fk1blow/haplea/domain"
)

// EventSink consumes discovery events fanned out by the dispatcher.
//
//go:generate moq -stub -out mock/event_sink.go -pkg mock . EventSink
type EventSink interface {
	// HandleEvent processes one event. An error is logged by the caller and does not stop delivery.
	HandleEvent(ctx context.Context, event domain.DiscoveryEvent) error
}
