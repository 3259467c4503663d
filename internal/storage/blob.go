// Package storage defines the durable blob-store boundary used to
// mirror assets the pipeline has downloaded.
package storage

import "context"

// BlobStore uploads raw bytes under a key and returns a publicly
// servable URL for the stored object.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}
