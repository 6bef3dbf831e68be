package realtime

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

type originPolicy struct {
	any   bool
	hosts map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	policy := originPolicy{hosts: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.ToLower(strings.TrimSpace(origin))
		switch origin {
		case "":
		case "*":
			policy.any = true
		default:
			policy.hosts[hostname(origin)] = struct{}{}
		}
	}
	return policy
}

// allows accepts requests without an Origin header, same-host and loopback origins,
// and the configured hosts.
func (p originPolicy) allows(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || p.any {
		return true
	}
	host := strings.ToLower(hostname(origin))
	if host == strings.ToLower(hostname(r.Host)) || loopback(host) {
		return true
	}
	_, ok := p.hosts[host]
	return ok
}

func hostname(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "://") {
		if parsed, err := url.Parse(value); err == nil {
			return parsed.Hostname()
		}
	}
	if host, _, err := net.SplitHostPort(value); err == nil {
		return host
	}
	return value
}

func loopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
