package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIP returns the client address resolved by TrustedRealIP. Without it
// the host part of RemoteAddr is returned.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok {
		return ip
	}
	return hostOnly(r.RemoteAddr)
}

// proxyList is the set of networks whose forwarding headers are believed.
type proxyList []*net.IPNet

func parseProxies(entries []string) proxyList {
	var list proxyList
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			if ip := net.ParseIP(entry); ip != nil && ip.To4() != nil {
				entry += "/32"
			} else {
				entry += "/128"
			}
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			slog.Warn("realip: skipping trusted proxy", "entry", entry, "error", err)
			continue
		}
		list = append(list, network)
	}
	return list
}

func (p proxyList) trusts(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, network := range p {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// resolve picks the client address for r. Forwarding headers count only when
// the connection comes from a trusted proxy and they carry a valid IP.
func (p proxyList) resolve(r *http.Request) string {
	remote := hostOnly(r.RemoteAddr)
	if !p.trusts(net.ParseIP(remote)) {
		return remote
	}

	candidate := r.Header.Get("X-Real-IP")
	if candidate == "" {
		candidate, _, _ = strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	}
	if ip := net.ParseIP(strings.TrimSpace(candidate)); ip != nil {
		return ip.String()
	}
	return remote
}

// TrustedRealIP records the client address for the rate limiter and the
// request log. RemoteAddr itself is left untouched.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	proxies := parseProxies(trusted)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, proxies.resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
