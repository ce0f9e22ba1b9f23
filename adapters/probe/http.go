package probe

import (
	"context"
	"io"
	"net/http"

	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/helpers"
)

// HTTP reports a peer alive when GET http://<peer>/<path> answers 200.
type HTTP struct {
	client *http.Client
	path   string
}

// NewHTTP creates an HTTP prober. The request deadline comes from the probe context.
func NewHTTP(client *http.Client, path string) *HTTP {
	return &HTTP{
		client: helpers.NilPanic(client, "probe.http.go: http client is required"),
		path:   helpers.StrPanic(path, "probe.http.go: path is required"),
	}
}

func (p *HTTP) Probe(ctx context.Context, peer domain.PeerInfo) bool {
	for _, target := range targets(peer, peer.Port) {
		if p.get(ctx, "http://"+target+p.path) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func (p *HTTP) get(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
