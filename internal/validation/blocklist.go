package validation

import "strings"

// Blocklist is a set of disposable mail domains, matched exactly.
type Blocklist map[string]struct{}

func NewBlocklist(domains []string) Blocklist {
	b := make(Blocklist, len(domains))
	for _, d := range domains {
		d = strings.TrimRight(Normalize(d), ".")
		if d == "" {
			continue
		}
		b[d] = struct{}{}
	}
	return b
}

func (b Blocklist) Contains(domain string) bool {
	_, ok := b[strings.ToLower(domain)]
	return ok
}
