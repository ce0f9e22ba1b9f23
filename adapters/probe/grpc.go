package probe

import (
	"context"
	"strconv"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// TxtGRPCPort is the TXT key carrying the peer's gRPC health port.
const TxtGRPCPort = "grpc_port"

// GRPC checks the standard grpc.health.v1 service on the port advertised in TXT grpc_port.
// Peers without that key are handed to the fallback prober.
type GRPC struct {
	fallback interfaces.Prober
}

func NewGRPC(fallback interfaces.Prober) *GRPC {
	return &GRPC{fallback: helpers.NilPanic(fallback, "probe.grpc.go: fallback prober is required")}
}

func (p *GRPC) Probe(ctx context.Context, peer domain.PeerInfo) bool {
	port, err := strconv.Atoi(peer.Txt[TxtGRPCPort])
	if err != nil || port <= 0 || port > 65535 {
		return p.fallback.Probe(ctx, peer)
	}

	for _, target := range targets(peer, port) {
		if check(ctx, target) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func check(ctx context.Context, target string) bool {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return false
	}
	defer conn.Close()

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
}
