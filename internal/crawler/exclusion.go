package crawler

import "strings"

// defaultExcludedKeywords marks URL paths that never contain product
// content: authentication, commerce chrome, account pages, legal
// boilerplate, and travel verticals that large marketplaces bolt on.
var defaultExcludedKeywords = []string{
	"login", "signin", "sign-in", "signup", "register", "logout", "auth",
	"account", "profile", "wishlist",
	"cart", "checkout", "payment", "order-history",
	"privacy", "terms", "legal", "policy", "careers",
	"travel", "flights", "hotels",
	"customer-care", "helpcentre", "faq",
}

// ExclusionPolicy decides whether a URL is admitted to the frontier.
// Matching is case-insensitive substring over the whole URL, applied in
// order; the zero-keyword policy admits everything.
type ExclusionPolicy struct {
	keywords []string
}

// NewExclusionPolicy builds the default denylist plus any extra
// keywords from configuration. Blank extras are ignored.
func NewExclusionPolicy(extra ...string) *ExclusionPolicy {
	keywords := make([]string, 0, len(defaultExcludedKeywords)+len(extra))
	for _, kw := range defaultExcludedKeywords {
		keywords = append(keywords, kw)
	}
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &ExclusionPolicy{keywords: keywords}
}

// Excluded reports whether the URL matches any denylist keyword.
func (p *ExclusionPolicy) Excluded(rawURL string) bool {
	if p == nil {
		return false
	}
	lowered := strings.ToLower(rawURL)
	for _, kw := range p.keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
