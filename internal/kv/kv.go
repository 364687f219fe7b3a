// Package kv defines the persisted-document store the engine writes its
// logical tables to. Each key holds one wholesale JSON document; there is no
// partial update and no schema migration machinery beyond additive fields.
package kv

// Store is a durable key-value store over JSON-serializable documents.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the document stored under key. The second return value
	// reports whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Set stores the document under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes the document under key. Deleting a missing key is a no-op.
	Delete(key string) error

	// Close releases any underlying resources.
	Close() error
}
