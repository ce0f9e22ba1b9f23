package interfaces

import (
	"context"

	"github.com/fk1blow/haplea/domain"
)

// Prober decides whether a peer is alive. The reaper bounds every call with a timeout
// carried by ctx, a probe that outlives ctx counts as dead.
//
//go:generate moq -stub -out mock/prober.go -pkg mock . Prober
type Prober interface {
	Probe(ctx context.Context, peer domain.PeerInfo) bool
}
