package interfaces

import "github.com/fk1blow/haplea/domain"

// PeerDirectory is a read-only view of the known peers.
//
//go:generate moq -stub -out mock/peer_directory.go -pkg mock . PeerDirectory
type PeerDirectory interface {
	// Snapshot returns copies of all known peers sorted by instance name.
	Snapshot() []domain.PeerInfo
	// Get returns a copy of one peer and whether it is known.
	Get(instanceName string) (domain.PeerInfo, bool)
}
