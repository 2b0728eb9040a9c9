package enhancely

import (
	"net/url"
	"strings"
)

// NormalizeURL reduces rawURL to scheme://host[:port]/path so the same page always maps
// to the same cache key. Query string, fragment, userinfo and trailing slashes are dropped;
// the root path "/" is kept. The rewrite is purely syntactic: no percent-decoding, case
// folding or default-port elision. Input without a scheme or host is returned unchanged.
func NormalizeURL(rawURL string) string {
	base := rawURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}

	i := strings.IndexByte(base, ':')
	if i <= 0 || !strings.HasPrefix(base[i+1:], "//") {
		return rawURL
	}
	scheme, rest := base[:i], base[i+3:]

	authority, path := rest, ""
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		authority, path = rest[:i], rest[i:]
	}

	// Only scheme and authority are validated; path bytes are kept verbatim.
	u, err := url.Parse(scheme + "://" + authority)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}

	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	}

	return scheme + "://" + authority + path
}
