// Package urlcache maps original asset URLs to their durably stored
// replacements so an asset is never downloaded and uploaded twice.
// Writes are last-write-wins; concurrent pipelines may safely repeat a
// Set for the same key.
package urlcache

import "context"

// Cache is the URL-to-stored-URL lookup collaborator.
type Cache interface {
	// Get returns the stored URL for originalURL, with ok=false on a miss.
	Get(ctx context.Context, originalURL string) (storedURL string, ok bool, err error)
	// Set records the mapping. Idempotent.
	Set(ctx context.Context, originalURL, storedURL string) error
}
