package registry

import (
	"sort"
	"sync"

	"github.com/fk1blow/haplea/domain"
)

// Registry is the in-memory set of known peers keyed by instance name.
// It is safe for concurrent use; values go in and come out as deep copies.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]domain.PeerInfo
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{peers: make(map[string]domain.PeerInfo)}
}

// Upsert inserts or replaces the peer with the same instance name.
// Returns true when the peer was not known before.
func (r *Registry) Upsert(peer domain.PeerInfo) bool {
	peer = peer.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	_, known := r.peers[peer.InstanceName]
	r.peers[peer.InstanceName] = peer
	return !known
}

// Remove deletes the peer. Removing an unknown name is a no-op.
// Returns true when a peer was deleted.
func (r *Registry) Remove(instanceName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[instanceName]; !ok {
		return false
	}
	delete(r.peers, instanceName)
	return true
}

// RemoveIf deletes the peer only if pred accepts the currently stored value.
// pred runs under the write lock and must not call back into the registry.
func (r *Registry) RemoveIf(instanceName string, pred func(current domain.PeerInfo) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.peers[instanceName]
	if !ok || !pred(current) {
		return false
	}
	delete(r.peers, instanceName)
	return true
}

// Get returns a copy of one peer.
func (r *Registry) Get(instanceName string) (domain.PeerInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peer, ok := r.peers[instanceName]
	if !ok {
		return domain.PeerInfo{}, false
	}
	return peer.Clone(), true
}

// Snapshot returns copies of all peers sorted by instance name.
func (r *Registry) Snapshot() []domain.PeerInfo {
	r.mu.RLock()
	out := make([]domain.PeerInfo, 0, len(r.peers))
	for _, peer := range r.peers {
		out = append(out, peer.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].InstanceName < out[j].InstanceName })
	return out
}

// Keys returns the sorted instance names.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.peers))
	for name := range r.peers {
		keys = append(keys, name)
	}
	r.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of known peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
