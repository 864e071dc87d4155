package middleware

import (
	"path"
	"strings"
)

// DefaultExcludedPaths bypass authentication: login, registration, test
// endpoints, API docs, health, favicon and metrics.
var DefaultExcludedPaths = []string{
	"/api/auth/login",
	"/api/auth/register",
	"/api/test",
	"/swagger",
	"/docs",
	"/health",
	"/favicon.ico",
	"/metrics",
}

// PathExclusionPolicy decides whether a path needs authentication.
// Matching is a case-insensitive prefix match. It is immutable after
// construction.
type PathExclusionPolicy struct {
	prefixes []string
}

// NewPathExclusionPolicy combines DefaultExcludedPaths with extra prefixes.
// Blank entries are ignored.
func NewPathExclusionPolicy(extra ...string) *PathExclusionPolicy {
	prefixes := make([]string, 0, len(DefaultExcludedPaths)+len(extra))
	for _, p := range append(append([]string{}, DefaultExcludedPaths...), extra...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &PathExclusionPolicy{prefixes: prefixes}
}

// IsExcluded reports whether p bypasses authentication. Dot segments are
// resolved first, so the decision is made on the path the router matches.
func (p *PathExclusionPolicy) IsExcluded(reqPath string) bool {
	lower := strings.ToLower(path.Clean("/" + reqPath))
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// Prefixes returns a copy of the excluded prefixes.
func (p *PathExclusionPolicy) Prefixes() []string {
	return append([]string(nil), p.prefixes...)
}

// IsCanonicalPath reports whether p is rooted and free of dot segments and
// empty segments. A single trailing slash is allowed.
func IsCanonicalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	cleaned := path.Clean(p)
	if cleaned != "/" && strings.HasSuffix(p, "/") {
		cleaned += "/"
	}
	return cleaned == p
}
