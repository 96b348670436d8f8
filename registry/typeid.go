package registry

import (
	"crypto/sha256"
	"encoding/hex"
)

// TypeIDFunc maps an entity type name to a stable opaque identifier. It must
// return the same value for the same name across processes, since type ids
// are persisted in the index.
type TypeIDFunc func(entityType string) string

// DefaultTypeID derives a 16-character hex identifier from the type name.
func DefaultTypeID(entityType string) string {
	sum := sha256.Sum256([]byte(entityType))
	return hex.EncodeToString(sum[:8])
}
