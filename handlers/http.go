// Package handlers contains the http handlers of haplea.
//
//go:generate oapi-codegen -config openapi-api.config.yaml ../api/haplea.openapi.yaml
//go:generate oapi-codegen -config openapi-types.config.yaml ../api/haplea.openapi.yaml
package handlers

import (
	"net/http"

	"github.com/fk1blow/haplea/helpers"
	"github.com/fk1blow/haplea/interfaces"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
)

// AppInfo is reported by GET /.
type AppInfo struct {
	Name         string
	Version      string
	InstanceName string
}

// HTTPServer implements ServerInterface.
type HTTPServer struct {
	info   AppInfo
	peers  interfaces.PeerDirectory
	hub    *EventHub
	logger log.Logger
}

// NewHTTPServer creates a new HTTPServer.
func NewHTTPServer(info AppInfo, peers interfaces.PeerDirectory, hub *EventHub, logger log.Logger) *HTTPServer {
	logger = log.WithPrefix(helpers.NilPanic(logger, "handlers.http.go: logger is required"), "component", "HTTPServer")
	return &HTTPServer{
		info:   info,
		peers:  helpers.NilPanic(peers, "handlers.http.go: peer directory is required"),
		hub:    helpers.NilPanic(hub, "handlers.http.go: event hub is required"),
		logger: logger,
	}
}

// GetRoot (GET /) reports the application name, version and local instance.
func (h *HTTPServer) GetRoot(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, RootResponse{
		Name:         h.info.Name,
		Version:      h.info.Version,
		Status:       "running",
		InstanceName: h.info.InstanceName,
	})
}

// GetHealth (GET /health) answers while the process is up.
func (h *HTTPServer) GetHealth(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// ListPeers (GET /v1/peers) returns the registry snapshot sorted by instance name.
func (h *HTTPServer) ListPeers(ectx echo.Context, params ListPeersParams) error {
	limit := service.Value(params.Limit)
	if params.Limit != nil && limit < 1 {
		return service.NewBadParameterError("limit must be positive", nil)
	}
	return ectx.JSON(http.StatusOK, toPeersResponse(h.peers.Snapshot(), limit))
}

// GetPeer (GET /v1/peers/{instance_name}) returns one peer, 404 if it is unknown.
func (h *HTTPServer) GetPeer(ectx echo.Context, instanceName string) error {
	peer, ok := h.peers.Get(instanceName)
	if !ok {
		return service.NewEntityNotFoundError("peer "+instanceName+" is not known", nil)
	}
	return ectx.JSON(http.StatusOK, toPeerInfo(peer))
}

// StreamEvents (GET /v1/events) upgrades to a websocket carrying one JSON text frame per discovery event.
func (h *HTTPServer) StreamEvents(ectx echo.Context) error {
	return h.hub.serve(ectx.Response(), ectx.Request())
}
