package probe

import (
	"context"
	"net"

	"github.com/fk1blow/haplea/domain"
)

// TCP reports a peer alive when a TCP connection to its advertised port succeeds.
type TCP struct {
	dialer *net.Dialer
}

func NewTCP() *TCP {
	return &TCP{dialer: &net.Dialer{}}
}

func (p *TCP) Probe(ctx context.Context, peer domain.PeerInfo) bool {
	return p.probePort(ctx, peer, peer.Port)
}

func (p *TCP) probePort(ctx context.Context, peer domain.PeerInfo, port int) bool {
	for _, target := range targets(peer, port) {
		conn, err := p.dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			continue
		}
		_ = conn.Close()
		return true
	}
	return false
}
