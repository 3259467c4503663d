// Package urlutil canonicalizes URLs before they enter the crawl, asset,
// or ingestion paths. Every other subsystem routes raw URLs through here
// so that deduplication and caching operate on one canonical form.
package urlutil

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// amazonThumbTokens matches the thumbnail-size segment Amazon CDNs splice
// into image paths, e.g. "41x.jpg._AC_SY200_.jpg". Stripping it recovers
// the full-resolution asset.
var amazonThumbTokens = regexp.MustCompile(`\._[^/]*\.`)

// sentinelMarkers identify placeholder domains a reasoning model emits
// when it hallucinates a URL instead of copying one from the page.
var sentinelMarkers = []string{"example.com", "example.org", "placeholder", "dummy"}

// schemePrefix matches an RFC 3986 scheme at the start of a URL, so
// mailto:/javascript:/tel: style URIs are never mistaken for bare
// domains.
var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Normalize canonicalizes a URL: explicit scheme for protocol-relative and
// bare-domain inputs, lowercased scheme and host, default ports and
// fragments removed, empty paths spelled "/". Inputs that already carry a
// scheme keep it. Applying it twice yields the same result as once.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case !schemePrefix.MatchString(raw) && strings.Contains(raw, "."):
		// Bare-domain form such as "www.shop.example/toys".
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	// A bare origin and its "/" form are the same page; give them one
	// canonical spelling so the visited set dedups them.
	if u.Host != "" && u.Path == "" {
		u.Path = "/"
	}

	u.Fragment = ""

	return u.String(), nil
}

// RepairImageURL applies vendor-specific fixes to image URLs known to be
// mangled by retail CDNs. Unknown hosts pass through unchanged.
// Idempotent.
func RepairImageURL(raw string) string {
	repaired := raw

	// Amazon serves low-resolution thumbnails with an encoded size token
	// between the basename and the extension. Remove every such token.
	if strings.Contains(repaired, "m.media-amazon.com") && strings.Contains(repaired, "._") {
		repaired = amazonThumbTokens.ReplaceAllString(repaired, ".")
	}

	// assets.ajio.com frequently 404s; assets-jiocdn.ajio.com is the
	// persistent production CDN for the same paths.
	if strings.Contains(repaired, "assets.ajio.com") {
		repaired = strings.Replace(repaired, "assets.ajio.com", "assets-jiocdn.ajio.com", 1)
	}

	return repaired
}

// SameHost reports whether two URLs share a network location. Malformed
// input never matches.
func SameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && strings.EqualFold(ua.Host, ub.Host)
}

// Resolve interprets ref relative to base, returning an absolute URL.
func Resolve(base, ref string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	return u.ResolveReference(r).String(), nil
}

// IsSentinel reports whether a URL contains a placeholder marker that
// indicates it was hallucinated rather than extracted.
func IsSentinel(raw string) bool {
	lowered := strings.ToLower(raw)
	for _, marker := range sentinelMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// HasImageExtension reports whether the URL path ends in a known image
// file extension, ignoring any query string.
func HasImageExtension(raw string) bool {
	lowered := strings.ToLower(raw)
	if i := strings.IndexAny(lowered, "?#"); i >= 0 {
		lowered = lowered[:i]
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".avif"} {
		if strings.HasSuffix(lowered, ext) {
			return true
		}
	}
	return false
}
