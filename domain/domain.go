package domain

import (
	"bytes"
	"errors"
	"net"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultServiceName is the application name advertised over mDNS.
	DefaultServiceName = "haplea"
	// DefaultServiceType is the DNS-SD service type every instance registers and browses.
	DefaultServiceType = "_haplea._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
)

// ServiceTypeFor returns the DNS-SD service type for an application name ("haplea" -> "_haplea._tcp").
func ServiceTypeFor(name string) string {
	return "_" + strings.TrimPrefix(name, "_") + "._tcp"
}

// PeerInfo is a discovered remote instance of the application.
// InstanceName is the registry key.
type PeerInfo struct {
	InstanceName string
	Hostname     string // fully qualified, ends with "."
	Port         int
	Addresses    []net.IP
	Txt          map[string]string
	ResolvedAt   time.Time // when the record was last resolved, used as an eviction guard
}

// Clone returns a deep copy of p.
func (p PeerInfo) Clone() PeerInfo {
	out := p
	if p.Addresses != nil {
		out.Addresses = make([]net.IP, len(p.Addresses))
		for i, ip := range p.Addresses {
			out.Addresses[i] = append(net.IP(nil), ip...)
		}
	}
	if p.Txt != nil {
		out.Txt = make(map[string]string, len(p.Txt))
		for k, v := range p.Txt {
			out.Txt[k] = v
		}
	}
	return out
}

// ServiceRecord is the DNS-SD record announced for, or resolved from, one instance.
type ServiceRecord struct {
	InstanceName string
	ServiceType  string
	Domain       string
	Hostname     string
	Port         int
	Addresses    []net.IP
	Txt          []string // "key=value" entries
}

var (
	errEmptyInstanceName = errors.New("instance name is empty")
	errEmptyServiceType  = errors.New("service type is empty")
	errPortOutOfRange    = errors.New("port must be within 1..65535")
	errHostnameNotFqdn   = errors.New("hostname must be fully qualified")
)

// Validate reports whether the record can be announced.
func (r ServiceRecord) Validate() error {
	switch {
	case r.InstanceName == "":
		return errEmptyInstanceName
	case r.ServiceType == "":
		return errEmptyServiceType
	case r.Port < 1 || r.Port > 65535:
		return errPortOutOfRange
	case !strings.HasSuffix(r.Hostname, "."):
		return errHostnameNotFqdn
	}
	return nil
}

// ParseTxt converts "key=value" TXT entries into a map. Entries without '=' map to "".
// The first occurrence of a key wins.
func ParseTxt(txt []string) map[string]string {
	if len(txt) == 0 {
		return nil
	}
	out := make(map[string]string, len(txt))
	for _, entry := range txt {
		if entry == "" {
			continue
		}
		key, value, _ := strings.Cut(entry, "=")
		if key == "" {
			continue
		}
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FormatTxt converts a map into sorted "key=value" TXT entries.
func FormatTxt(txt map[string]string) []string {
	if len(txt) == 0 {
		return nil
	}
	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// NormalizeAddresses drops nil and duplicate addresses and orders IPv4 before IPv6.
func NormalizeAddresses(ips []net.IP) []net.IP {
	out := make([]net.IP, 0, len(ips))
	seen := make(map[string]struct{}, len(ips))
	for _, ip := range ips {
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}
		key := string(ip)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, append(net.IP(nil), ip...))
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return bytes.Compare(out[i], out[j]) < 0
	})
	return out
}

// NotificationKind discriminates Notification.
type NotificationKind int

const (
	// NotificationResolved carries a fully resolved record.
	NotificationResolved NotificationKind = iota + 1
	// NotificationRemoved means the instance is no longer announced.
	NotificationRemoved
)

func (k NotificationKind) String() string {
	switch k {
	case NotificationResolved:
		return "resolved"
	case NotificationRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Notification is one item of the transport's discovery feed.
type Notification struct {
	Kind         NotificationKind
	Record       ServiceRecord // NotificationResolved only
	InstanceName string        // NotificationRemoved only
}

// Resolved builds a NotificationResolved.
func Resolved(record ServiceRecord) Notification {
	return Notification{Kind: NotificationResolved, Record: record, InstanceName: record.InstanceName}
}

// Removed builds a NotificationRemoved.
func Removed(instanceName string) Notification {
	return Notification{Kind: NotificationRemoved, InstanceName: instanceName}
}

// EventKind discriminates DiscoveryEvent.
type EventKind string

const (
	EventPeerDiscovered EventKind = "peer_discovered"
	EventPeerRemoved    EventKind = "peer_removed"
	// EventFeedClosed is emitted once when the transport feed ends while the service is still running.
	EventFeedClosed EventKind = "feed_closed"
)

// RemovalReason tells which component removed a peer.
type RemovalReason string

const (
	RemovalTransport RemovalReason = "transport"
	RemovalLiveness  RemovalReason = "liveness"
)

// DiscoveryEvent is a membership change delivered to consumers.
type DiscoveryEvent struct {
	Kind         EventKind
	InstanceName string
	Peer         PeerInfo      // EventPeerDiscovered only
	Reason       RemovalReason // EventPeerRemoved only
	At           time.Time
}

// PeerDiscovered builds an EventPeerDiscovered event.
func PeerDiscovered(peer PeerInfo, at time.Time) DiscoveryEvent {
	return DiscoveryEvent{Kind: EventPeerDiscovered, InstanceName: peer.InstanceName, Peer: peer.Clone(), At: at}
}

// PeerRemoved builds an EventPeerRemoved event.
func PeerRemoved(instanceName string, reason RemovalReason, at time.Time) DiscoveryEvent {
	return DiscoveryEvent{Kind: EventPeerRemoved, InstanceName: instanceName, Reason: reason, At: at}
}

// FeedClosed builds an EventFeedClosed event.
func FeedClosed(at time.Time) DiscoveryEvent {
	return DiscoveryEvent{Kind: EventFeedClosed, At: at}
}
