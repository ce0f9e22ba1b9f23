package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/interfaces"
)

const (
	KindTCP  = "tcp"
	KindHTTP = "http"
	KindGRPC = "grpc"
	KindNone = "none"
)

// New returns the prober for kind. An empty kind selects tcp.
func New(kind string) (interfaces.Prober, error) {
	switch strings.ToLower(kind) {
	case "", KindTCP:
		return NewTCP(), nil
	case KindHTTP:
		return NewHTTP(&http.Client{}, "/health"), nil
	case KindGRPC:
		return NewGRPC(NewTCP()), nil
	case KindNone:
		return Static(true), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", kind)
	}
}

// Static always reports the same answer.
type Static bool

func (s Static) Probe(_ context.Context, _ domain.PeerInfo) bool {
	return bool(s)
}

// targets lists "host:port" candidates for a peer: every address first, then the hostname.
func targets(peer domain.PeerInfo, port int) []string {
	p := strconv.Itoa(port)
	out := make([]string, 0, len(peer.Addresses)+1)
	for _, ip := range peer.Addresses {
		out = append(out, net.JoinHostPort(ip.String(), p))
	}
	if len(out) == 0 && peer.Hostname != "" {
		out = append(out, net.JoinHostPort(strings.TrimSuffix(peer.Hostname, "."), p))
	}
	return out
}
