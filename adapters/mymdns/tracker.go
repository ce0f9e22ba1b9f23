package mymdns

import (
	"net"
	"slices"
	"sort"

	"github.com/fk1blow/haplea/domain"

	"github.com/hashicorp/mdns"
	"github.com/miekg/dns"
)

type trackedInstance struct {
	record domain.ServiceRecord
	missed int
}

// tracker turns the answers of successive browse queries into resolved/removed notifications.
// hashicorp/mdns has no goodbye handling, so an instance absent from missedLimit consecutive
// queries is reported removed.
type tracker struct {
	serviceType string
	domain      string
	missedLimit int
	known       map[string]*trackedInstance
}

func newTracker(serviceType, mdnsDomain string, missedLimit int) *tracker {
	return &tracker{
		serviceType: serviceType,
		domain:      mdnsDomain,
		missedLimit: missedLimit,
		known:       make(map[string]*trackedInstance),
	}
}

// observe consumes the entries of one completed query.
func (t *tracker) observe(entries []*mdns.ServiceEntry) []domain.Notification {
	var out []domain.Notification
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		record, ok := t.recordFromEntry(entry)
		if !ok {
			continue
		}
		if _, dup := seen[record.InstanceName]; dup {
			continue
		}
		seen[record.InstanceName] = struct{}{}

		prev, known := t.known[record.InstanceName]
		if !known || !sameRecord(prev.record, record) {
			out = append(out, domain.Resolved(record))
		}
		t.known[record.InstanceName] = &trackedInstance{record: record}
	}

	names := make([]string, 0, len(t.known))
	for name := range t.known {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		instance := t.known[name]
		instance.missed++
		if instance.missed >= t.missedLimit {
			delete(t.known, name)
			out = append(out, domain.Removed(name))
		}
	}
	return out
}

func (t *tracker) recordFromEntry(entry *mdns.ServiceEntry) (domain.ServiceRecord, bool) {
	if entry == nil || entry.Port <= 0 || entry.Host == "" {
		return domain.ServiceRecord{}, false
	}
	name, ok := instanceFromEntryName(entry.Name, t.serviceType, t.domain)
	if !ok || name == "" {
		return domain.ServiceRecord{}, false
	}

	var addrs []net.IP
	if entry.AddrV4 != nil {
		addrs = append(addrs, entry.AddrV4)
	}
	if entry.AddrV6 != nil {
		addrs = append(addrs, entry.AddrV6)
	}

	return domain.ServiceRecord{
		InstanceName: name,
		ServiceType:  t.serviceType,
		Domain:       t.domain,
		Hostname:     dns.Fqdn(entry.Host),
		Port:         entry.Port,
		Addresses:    domain.NormalizeAddresses(addrs),
		Txt:          slices.Clone(entry.InfoFields),
	}, true
}

func sameRecord(a, b domain.ServiceRecord) bool {
	if a.Hostname != b.Hostname || a.Port != b.Port {
		return false
	}
	if !slices.EqualFunc(a.Addresses, b.Addresses, func(x, y net.IP) bool { return x.Equal(y) }) {
		return false
	}
	return slices.Equal(a.Txt, b.Txt)
}
