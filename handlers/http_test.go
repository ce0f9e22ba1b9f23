package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fk1blow/haplea/api"
	"github.com/fk1blow/haplea/domain"
	"github.com/fk1blow/haplea/interfaces/mock"
	"github.com/fk1blow/haplea/service"

	"github.com/go-kit/log"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInfo = AppInfo{Name: "Haplea", Version: "0.1.0", InstanceName: "haplea-1"}

func registerHandlers(t *testing.T, e *echo.Echo, server ServerInterface) {
	t.Helper()
	router, err := LoadRouter(api.OpenAPI)
	require.NoError(t, err)
	e.Use(RequestValidator(router))
	RegisterHandlers(e, server)
	service.RegisterErrorHandler(e, log.NewNopLogger())
}

func peersDirectory(peers ...domain.PeerInfo) *mock.PeerDirectoryMock {
	return &mock.PeerDirectoryMock{
		SnapshotFunc: func() []domain.PeerInfo { return peers },
		GetFunc: func(instanceName string) (domain.PeerInfo, bool) {
			for _, p := range peers {
				if p.InstanceName == instanceName {
					return p, true
				}
			}
			return domain.PeerInfo{}, false
		},
	}
}

type errBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, peers *mock.PeerDirectoryMock, target string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	registerHandlers(t, e, NewHTTPServer(testInfo, peers, NewEventHub(0, log.NewNopLogger()), log.NewNopLogger()))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHTTPServer_GetRoot(t *testing.T) {
	rec := serve(t, peersDirectory(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"Haplea","version":"0.1.0","status":"running","instance_name":"haplea-1"}`, rec.Body.String())
}

func TestHTTPServer_GetHealth(t *testing.T) {
	rec := serve(t, peersDirectory(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHTTPServer_ListPeers(t *testing.T) {
	peers := peersDirectory(testPeer("haplea-2", 4001), testPeer("haplea-3", 4002))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		wantNames      []string
		wantCode       string
	}{
		{
			name:           "ok",
			target:         "/v1/peers",
			expectedStatus: http.StatusOK,
			wantNames:      []string{"haplea-2", "haplea-3"},
		},
		{
			name:           "ok limit",
			target:         "/v1/peers?limit=1",
			expectedStatus: http.StatusOK,
			wantNames:      []string{"haplea-2"},
		},
		{
			name:           "400 zero limit",
			target:         "/v1/peers?limit=0",
			expectedStatus: http.StatusBadRequest,
			wantCode:       service.ErrBadParameter,
		},
		{
			name:           "400 limit not a number",
			target:         "/v1/peers?limit=abc",
			expectedStatus: http.StatusBadRequest,
			wantCode:       service.ErrBadParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, peers, tt.target)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp PeersResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				names := make([]string, 0, len(resp.Peers))
				for _, p := range resp.Peers {
					names = append(names, p.InstanceName)
				}
				assert.Equal(t, tt.wantNames, names)
				return
			}
			var body errBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHTTPServer_ListPeers_Empty(t *testing.T) {
	rec := serve(t, peersDirectory(), "/v1/peers")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"peers":[]}`, rec.Body.String())
}

func TestHTTPServer_GetPeer(t *testing.T) {
	peers := peersDirectory(testPeer("haplea-2", 4001))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		wantCode       string
	}{
		{
			name:           "ok",
			target:         "/v1/peers/haplea-2",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "404 unknown peer",
			target:         "/v1/peers/haplea-9",
			expectedStatus: http.StatusNotFound,
			wantCode:       service.ErrEntityNotFound,
		},
		{
			name:           "400 name too long",
			target:         "/v1/peers/" + strings.Repeat("a", 64),
			expectedStatus: http.StatusBadRequest,
			wantCode:       service.ErrBadParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, peers, tt.target)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp PeerInfo
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "haplea-2", resp.InstanceName)
				assert.Equal(t, "haplea-2.local.", resp.Hostname)
				assert.Equal(t, 4001, resp.Port)
				assert.Equal(t, []string{"192.168.1.20", "fe80::1"}, resp.Addresses)
				return
			}
			var body errBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestServerInterfaceWrapper_ListPeers_BindsLimit(t *testing.T) {
	peers := peersDirectory(testPeer("haplea-2", 4001), testPeer("haplea-3", 4002))

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		wantPeers      int
		wantMessage    string
	}{
		{
			name:           "ok without limit",
			target:         "/v1/peers",
			expectedStatus: http.StatusOK,
			wantPeers:      2,
		},
		{
			name:           "ok limit",
			target:         "/v1/peers?limit=1",
			expectedStatus: http.StatusOK,
			wantPeers:      1,
		},
		{
			name:           "400 limit not a number",
			target:         "/v1/peers?limit=abc",
			expectedStatus: http.StatusBadRequest,
			wantMessage:    "Invalid format for parameter limit",
		},
		{
			name:           "400 negative limit",
			target:         "/v1/peers?limit=-1",
			expectedStatus: http.StatusBadRequest,
			wantMessage:    "limit must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// no request validator: the generated wrapper does the binding on its own
			e := echo.New()
			service.RegisterErrorHandler(e, log.NewNopLogger())
			RegisterHandlers(e, NewHTTPServer(testInfo, peers, NewEventHub(0, log.NewNopLogger()), log.NewNopLogger()))

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp PeersResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Len(t, resp.Peers, tt.wantPeers)
				return
			}
			var body errBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			require.NotNil(t, body.Error)
			assert.Contains(t, body.Error.Message, tt.wantMessage)
		})
	}
}

func TestRequestValidator_UnknownPathPassesThrough(t *testing.T) {
	e := echo.New()
	registerHandlers(t, e, NewHTTPServer(testInfo, peersDirectory(), NewEventHub(0, log.NewNopLogger()), log.NewNopLogger()))
	e.GET("/metrics", func(ectx echo.Context) error { return ectx.String(http.StatusOK, "haplea_peers 0\n") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics?anything=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoadRouter_InvalidDocument(t *testing.T) {
	_, err := LoadRouter([]byte("openapi: [not, a, document"))
	assert.Error(t, err)
}

func TestNewHTTPServer_RequiresCollaborators(t *testing.T) {
	assert.PanicsWithValue(t, "handlers.http.go: peer directory is required", func() {
		NewHTTPServer(testInfo, nil, NewEventHub(0, log.NewNopLogger()), log.NewNopLogger())
	})
	assert.PanicsWithValue(t, "handlers.http.go: event hub is required", func() {
		NewHTTPServer(testInfo, peersDirectory(), nil, log.NewNopLogger())
	})
}
