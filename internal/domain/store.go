package domain

// Blob keys used by the catalog and the library session.
const (
	KeyCatalog = "catalog"
	KeyState   = "state"
)

// BlobStore persists opaque byte blobs by key.
// Write must replace the previous value atomically: a crash mid-write
// leaves either the old or the new blob, never a torn one.
type BlobStore interface {
	// Read returns false when no blob exists for key.
	Read(key string) ([]byte, bool, error)
	Write(key string, data []byte) error
	Close() error
}
