package handlers

import (
	"github.com/fk1blow/haplea/domain"
)

// toPeerInfo converts a domain peer to the API model.
func toPeerInfo(p domain.PeerInfo) PeerInfo {
	addrs := make([]string, 0, len(p.Addresses))
	for _, ip := range p.Addresses {
		addrs = append(addrs, ip.String())
	}
	var txt map[string]string
	if len(p.Txt) > 0 {
		txt = make(map[string]string, len(p.Txt))
		for k, v := range p.Txt {
			txt[k] = v
		}
	}
	return PeerInfo{
		InstanceName: p.InstanceName,
		Hostname:     p.Hostname,
		Port:         p.Port,
		Addresses:    addrs,
		Txt:          txt,
		ResolvedAt:   p.ResolvedAt.UTC(),
	}
}

// toPeersResponse converts a registry snapshot; limit <= 0 returns every peer.
func toPeersResponse(peers []domain.PeerInfo, limit int) PeersResponse {
	if limit > 0 && len(peers) > limit {
		peers = peers[:limit]
	}
	out := make([]PeerInfo, 0, len(peers))
	for _, p := range peers {
		out = append(out, toPeerInfo(p))
	}
	return PeersResponse{Peers: out}
}

func toEventMessage(ev domain.DiscoveryEvent) EventMessage {
	msg := EventMessage{
		Kind:         EventMessageKind(ev.Kind),
		InstanceName: ev.InstanceName,
		Reason:       EventMessageReason(ev.Reason),
		At:           ev.At.UTC(),
	}
	if ev.Kind == domain.EventPeerDiscovered {
		peer := toPeerInfo(ev.Peer)
		msg.Peer = &peer
	}
	return msg
}
