// internal/address/rewrite.go
//
// Site relocation and URL rewriting.
//
// Context
// -------
// When a network changes address, or a site moves to another network,
// every dependent site address and every URL-valued option must follow.
// Both helpers treat addresses as structured values (host, path) instead
// of replacing substrings, so an old domain that happens to appear inside
// an unrelated value is never touched.
//
// Relocation policy
// -----------------
//   • domain == from.Domain          → to.Domain
//   • domain ends in "."+from.Domain → prefix kept, re-based on to.Domain
//   • anything else (mapped domain)  → whole address unchanged
//   • path starting with from.Path   → prefix replaced by to.Path
//
// The same policy serves network updates and site moves.

package address

import (
	"net/url"
	"strings"
)

// Address is a (domain, path) pair.
type Address struct {
	Domain string
	Path   string
}

// String renders domain+path, the form stored in option values.
func (a Address) String() string { return a.Domain + a.Path }

// Relocate maps a site address from one network base to another.
func Relocate(site, from, to Address) Address {
	d := site.Domain
	switch {
	case d == from.Domain:
		d = to.Domain
	case strings.HasSuffix(d, "."+from.Domain):
		d = strings.TrimSuffix(d, from.Domain) + to.Domain
	default:
		return site
	}

	p := site.Path
	if strings.HasPrefix(p, from.Path) {
		p = to.Path + strings.TrimPrefix(p, from.Path)
	}
	return Address{Domain: d, Path: p}
}

// RewriteURL re-points raw from one site address to another.  It reports
// false, and returns raw unchanged, when raw is not an absolute URL under
// from.
func RewriteURL(raw string, from, to Address) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.EqualFold(u.Host, from.Domain) {
		return raw, false
	}

	p := u.Path
	withSlash := p
	if !strings.HasSuffix(withSlash, "/") {
		withSlash += "/"
	}
	if !strings.HasPrefix(withSlash, from.Path) {
		return raw, false
	}

	np := to.Path + strings.TrimPrefix(withSlash, from.Path)
	if !strings.HasSuffix(p, "/") {
		np = strings.TrimSuffix(np, "/")
	}

	u.Host = to.Domain
	u.Path = np
	u.RawPath = ""
	out := u.String()
	return out, out != raw
}

// SiteURL builds the canonical siteurl/home value for an address.
func SiteURL(scheme string, a Address) string {
	return scheme + "://" + a.Domain + strings.TrimSuffix(a.Path, "/")
}
