package mymdns

import (
	"strings"

	"github.com/miekg/dns"
)

// instanceFromEntryName extracts the instance label from a full service instance name
// ("haplea-2._haplea._tcp.local." -> "haplea-2"). Returns false for names of other services.
func instanceFromEntryName(name, serviceType, mdnsDomain string) (string, bool) {
	labels := dns.SplitDomainName(dns.Fqdn(name))
	suffix := append(dns.SplitDomainName(dns.Fqdn(serviceType)), dns.SplitDomainName(dns.Fqdn(mdnsDomain))...)
	if len(labels) <= len(suffix) {
		return "", false
	}

	tail := labels[len(labels)-len(suffix):]
	for i := range suffix {
		if !strings.EqualFold(tail[i], suffix[i]) {
			return "", false
		}
	}

	head := labels[:len(labels)-len(suffix)]
	for i := range head {
		head[i] = unescapeLabel(head[i])
	}
	return strings.Join(head, "."), true
}

// unescapeLabel reverses the presentation escaping of a label: "\." and "\ " become
// the literal character, "\DDD" becomes the byte with that decimal value.
func unescapeLabel(label string) string {
	if !strings.Contains(label, `\`) {
		return label
	}
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c != '\\' || i+1 >= len(label) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
			v := int(label[i+1]-'0')*100 + int(label[i+2]-'0')*10 + int(label[i+3]-'0')
			if v <= 255 {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(label[i+1])
		i++
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
