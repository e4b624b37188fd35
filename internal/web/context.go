package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/importexport/internal/web/middleware"
)

// anonymousOperator is recorded as author or owner when a request carries no
// recognised API key.
const anonymousOperator = "anonymous"

// operatorName returns the operator the request authenticated as.
func operatorName(r *http.Request) string {
	if name := middleware.Operator(r.Context()); name != "" {
		return name
	}
	return anonymousOperator
}

// siteOrigin returns the scheme and host the request was addressed to, used
// to build links in export emails. Falls back to the configured site URL.
func (s *Server) siteOrigin(r *http.Request) string {
	if r.Host == "" {
		return strings.TrimSuffix(s.cfg.Server.SiteURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
