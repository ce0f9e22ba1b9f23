package myredis

import (
	"encoding/json"
	"net"
	"time"

	"github.com/fk1blow/haplea/domain"
)

// peerRecord is the JSON stored under haplea:peer:<instance_name>.
type peerRecord struct {
	InstanceName string            `json:"instance_name"`
	Hostname     string            `json:"hostname"`
	Port         int               `json:"port"`
	Addresses    []string          `json:"addresses"`
	Txt          map[string]string `json:"txt,omitempty"`
	ResolvedAt   time.Time         `json:"resolved_at"`
}

// eventRecord is the JSON published on the events channel.
type eventRecord struct {
	Kind         string      `json:"kind"`
	InstanceName string      `json:"instance_name,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	At           time.Time   `json:"at"`
	Peer         *peerRecord `json:"peer,omitempty"`
}

func toPeerRecord(p domain.PeerInfo) peerRecord {
	addrs := make([]string, 0, len(p.Addresses))
	for _, ip := range p.Addresses {
		addrs = append(addrs, ip.String())
	}
	return peerRecord{
		InstanceName: p.InstanceName,
		Hostname:     p.Hostname,
		Port:         p.Port,
		Addresses:    addrs,
		Txt:          p.Txt,
		ResolvedAt:   p.ResolvedAt.UTC(),
	}
}

// MarshalPeer encodes a peer for the mirror.
func MarshalPeer(p domain.PeerInfo) ([]byte, error) {
	return json.Marshal(toPeerRecord(p))
}

// UnmarshalPeer decodes a mirrored peer. Unparsable addresses are dropped.
func UnmarshalPeer(b []byte) (domain.PeerInfo, error) {
	var r peerRecord
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.PeerInfo{}, err
	}
	addrs := make([]net.IP, 0, len(r.Addresses))
	for _, a := range r.Addresses {
		if ip := net.ParseIP(a); ip != nil {
			addrs = append(addrs, ip)
		}
	}
	return domain.PeerInfo{
		InstanceName: r.InstanceName,
		Hostname:     r.Hostname,
		Port:         r.Port,
		Addresses:    domain.NormalizeAddresses(addrs),
		Txt:          r.Txt,
		ResolvedAt:   r.ResolvedAt,
	}, nil
}

func marshalEvent(ev domain.DiscoveryEvent) ([]byte, error) {
	r := eventRecord{
		Kind:         string(ev.Kind),
		InstanceName: ev.InstanceName,
		Reason:       string(ev.Reason),
		At:           ev.At.UTC(),
	}
	if ev.Kind == domain.EventPeerDiscovered {
		peer := toPeerRecord(ev.Peer)
		r.Peer = &peer
	}
	return json.Marshal(r)
}
