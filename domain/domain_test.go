package domain

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTypeFor(t *testing.T) {
	assert.Equal(t, "_haplea._tcp", ServiceTypeFor("haplea"))
	assert.Equal(t, "_haplea._tcp", ServiceTypeFor("_haplea"))
	assert.Equal(t, DefaultServiceType, ServiceTypeFor(DefaultServiceName))
}

func TestPeerInfo_Clone_IsDeep(t *testing.T) {
	orig := PeerInfo{
		InstanceName: "haplea-2",
		Hostname:     "host2.local.",
		Port:         4001,
		Addresses:    []net.IP{net.ParseIP("192.168.1.20").To4()},
		Txt:          map[string]string{"version": "1"},
		ResolvedAt:   time.Unix(100, 0),
	}

	cp := orig.Clone()
	cp.Addresses[0][0] = 10
	cp.Txt["version"] = "2"

	assert.Equal(t, "192.168.1.20", orig.Addresses[0].String())
	assert.Equal(t, "1", orig.Txt["version"])
	assert.Equal(t, orig.ResolvedAt, cp.ResolvedAt)
}

func TestServiceRecord_Validate(t *testing.T) {
	valid := ServiceRecord{InstanceName: "haplea-1", ServiceType: DefaultServiceType, Domain: DefaultDomain, Hostname: "host1.local.", Port: 4000}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *ServiceRecord)
		want   error
	}{
		{"empty_instance", func(r *ServiceRecord) { r.InstanceName = "" }, errEmptyInstanceName},
		{"empty_service_type", func(r *ServiceRecord) { r.ServiceType = "" }, errEmptyServiceType},
		{"zero_port", func(r *ServiceRecord) { r.Port = 0 }, errPortOutOfRange},
		{"port_too_big", func(r *ServiceRecord) { r.Port = 70000 }, errPortOutOfRange},
		{"hostname_not_fqdn", func(r *ServiceRecord) { r.Hostname = "host1.local" }, errHostnameNotFqdn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), tt.want)
		})
	}
}

func TestParseTxt(t *testing.T) {
	got := ParseTxt([]string{"version=0.1.0", "grpc_port=5000", "flag", "version=ignored", "=nokey", ""})
	assert.Equal(t, map[string]string{"version": "0.1.0", "grpc_port": "5000", "flag": ""}, got)
	assert.Nil(t, ParseTxt(nil))
	assert.Nil(t, ParseTxt([]string{""}))
}

func TestFormatTxt(t *testing.T) {
	assert.Equal(t, []string{"a=1", "b=2"}, FormatTxt(map[string]string{"b": "2", "a": "1"}))
	assert.Nil(t, FormatTxt(nil))
}

func TestNormalizeAddresses(t *testing.T) {
	in := []net.IP{
		net.ParseIP("fe80::1"),
		net.ParseIP("192.168.1.20"),
		nil,
		net.ParseIP("192.168.1.20").To4(),
		net.ParseIP("10.0.0.1"),
	}
	got := NormalizeAddresses(in)
	require.Len(t, got, 3)
	assert.Equal(t, "10.0.0.1", got[0].String())
	assert.Equal(t, "192.168.1.20", got[1].String())
	assert.Equal(t, "fe80::1", got[2].String())
}

func TestEventConstructors(t *testing.T) {
	at := time.Unix(42, 0)
	peer := PeerInfo{InstanceName: "haplea-2", Txt: map[string]string{"k": "v"}}

	ev := PeerDiscovered(peer, at)
	assert.Equal(t, EventPeerDiscovered, ev.Kind)
	assert.Equal(t, "haplea-2", ev.InstanceName)
	peer.Txt["k"] = "changed"
	assert.Equal(t, "v", ev.Peer.Txt["k"])

	rm := PeerRemoved("haplea-3", RemovalLiveness, at)
	assert.Equal(t, EventPeerRemoved, rm.Kind)
	assert.Equal(t, RemovalLiveness, rm.Reason)
	assert.Equal(t, at, rm.At)

	assert.Equal(t, EventFeedClosed, FeedClosed(at).Kind)
}

func TestNotificationConstructors(t *testing.T) {
	n := Resolved(ServiceRecord{InstanceName: "haplea-2"})
	assert.Equal(t, NotificationResolved, n.Kind)
	assert.Equal(t, "haplea-2", n.InstanceName)
	assert.Equal(t, "resolved", n.Kind.String())
	assert.Equal(t, "removed", Removed("x").Kind.String())
	assert.Equal(t, "unknown", NotificationKind(0).String())
}
