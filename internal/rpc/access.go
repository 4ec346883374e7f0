package rpc

import (
	"mime"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"github.com/Klingon-tech/klingvault/config"
)

// accessPolicy gates callers by source address and answers browser CORS
// checks. The zero value admits every loopback caller, rejects any
// request carrying an Origin header, and sends no CORS headers.
type accessPolicy struct {
	allowed []netip.Prefix
	origins []string
}

func newAccessPolicy(cfg config.RPCConfig) accessPolicy {
	return accessPolicy{allowed: parseAllowedIPs(cfg.AllowedIPs), origins: cfg.CORSOrigins}
}

// parseAllowedIPs accepts CIDRs and bare addresses. Entries that are
// neither are skipped; config validation reports them earlier.
func parseAllowedIPs(entries []string) []netip.Prefix {
	var out []netip.Prefix
	for _, e := range entries {
		if p, err := netip.ParsePrefix(e); err == nil {
			out = append(out, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

func (p accessPolicy) admits(remoteAddr string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return slices.ContainsFunc(p.allowed, func(pfx netip.Prefix) bool { return pfx.Contains(addr) })
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin,
// or "" when the origin is not configured.
func (p accessPolicy) allowOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range p.origins {
		if o == "*" || o == origin {
			return o
		}
	}
	return ""
}

// loopbackHost reports whether a request's Host header names this
// machine. Any other name means the page reached us through DNS
// rebinding.
func loopbackHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Unmap().IsLoopback()
}

// jsonBody reports whether a POST declares a JSON body. Browsers send
// text/plain and form types cross-origin without a preflight.
func jsonBody(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// wrap applies, in order: the caller address allowlist, the Host check,
// the Origin allowlist (a request with an unlisted Origin never reaches
// a handler), CORS preflight, and the JSON content type on POST.
func (p accessPolicy) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !p.admits(r.RemoteAddr) || !loopbackHost(r.Host) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			allow := p.allowOrigin(origin)
			if allow == "" {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
		}
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		case http.MethodPost:
			if !jsonBody(r) {
				http.Error(w, "content type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
