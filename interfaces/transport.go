package interfaces

import (
	"context"

	"github.com/fk1blow/haplea/domain"
)

// Transport is the mDNS / DNS-SD layer: it announces local records and produces a discovery feed.
//
//go:generate moq -stub -out mock/transport.go -pkg mock . Transport Registration
type Transport interface {
	// Register announces record on the local link until the returned Registration is shut down.
	// Returns:
	// 1) (registration, nil) when the responder is running;
	// 2) (nil, error) when the record cannot be built or the responder cannot bind.
	Register(ctx context.Context, record domain.ServiceRecord) (Registration, error)

	// Subscribe starts browsing serviceType. The feed is closed when ctx is done or when
	// the transport gives up; resolved and removed notifications for one instance arrive in order.
	// Returns:
	// 1) (feed, nil) when browsing has started;
	// 2) (nil, error) when the subscription cannot be set up.
	Subscribe(ctx context.Context, serviceType string) (<-chan domain.Notification, error)
}

// Registration is a live announcement.
type Registration interface {
	// Shutdown stops answering queries for the record.
	Shutdown() error
}
