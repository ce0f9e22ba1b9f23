package mymdns

import (
	"net"
	"testing"

	"github.com/fk1blow/haplea/domain"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(instance, host string, port int, ip string, txt ...string) *mdns.ServiceEntry {
	return &mdns.ServiceEntry{
		Name:       instance + "._haplea._tcp.local.",
		Host:       host,
		AddrV4:     net.ParseIP(ip).To4(),
		Port:       port,
		InfoFields: txt,
	}
}

func TestTracker_Observe_NewInstanceIsResolved(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 3)

	got := tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local", 4001, "192.168.1.20", "version=0.1.0")})
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotificationResolved, got[0].Kind)
	assert.Equal(t, domain.ServiceRecord{
		InstanceName: "haplea-2",
		ServiceType:  "_haplea._tcp",
		Domain:       "local.",
		Hostname:     "host2.local.",
		Port:         4001,
		Addresses:    []net.IP{net.ParseIP("192.168.1.20").To4()},
		Txt:          []string{"version=0.1.0"},
	}, got[0].Record)
}

func TestTracker_Observe_UnchangedInstanceIsSilent(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 3)
	tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")})

	assert.Empty(t, tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")}))
}

func TestTracker_Observe_ChangedInstanceIsResolvedAgain(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 3)
	tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")})

	got := tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4002, "192.168.1.20")})
	require.Len(t, got, 1)
	assert.Equal(t, 4002, got[0].Record.Port)
}

func TestTracker_Observe_RemovedAfterMissedQueries(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 3)
	tr.observe([]*mdns.ServiceEntry{
		entry("haplea-2", "host2.local.", 4001, "192.168.1.20"),
		entry("haplea-3", "host3.local.", 4002, "192.168.1.30"),
	})

	assert.Empty(t, tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")}))
	assert.Empty(t, tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")}))
	got := tr.observe([]*mdns.ServiceEntry{entry("haplea-2", "host2.local.", 4001, "192.168.1.20")})
	require.Len(t, got, 1)
	assert.Equal(t, domain.Removed("haplea-3"), got[0])

	assert.Empty(t, tr.observe(nil), "haplea-2 missed once")
}

func TestTracker_Observe_ReappearingResetsMissCount(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 2)
	e := entry("haplea-2", "host2.local.", 4001, "192.168.1.20")
	tr.observe([]*mdns.ServiceEntry{e})

	assert.Empty(t, tr.observe(nil))
	assert.Empty(t, tr.observe([]*mdns.ServiceEntry{e}))
	assert.Empty(t, tr.observe(nil))
	got := tr.observe(nil)
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotificationRemoved, got[0].Kind)
}

func TestTracker_Observe_SkipsForeignAndIncompleteEntries(t *testing.T) {
	tr := newTracker("_haplea._tcp", "local.", 3)
	foreign := entry("printer", "printer.local.", 631, "192.168.1.50")
	foreign.Name = "printer._ipp._tcp.local."
	noPort := entry("haplea-4", "host4.local.", 0, "192.168.1.40")
	noHost := entry("haplea-5", "", 4005, "192.168.1.41")
	dup := entry("haplea-2", "host2.local.", 4001, "192.168.1.20")

	got := tr.observe([]*mdns.ServiceEntry{nil, foreign, noPort, noHost, dup, dup})
	require.Len(t, got, 1)
	assert.Equal(t, "haplea-2", got[0].InstanceName)
}
