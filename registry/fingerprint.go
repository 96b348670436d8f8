package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Fingerprint returns a stable hash of every descriptor. It changes whenever
// a type, primary key, field rule or optional-attribute rule changes, which
// means documents already in the index were built from a different mapping.
func (r *Registry) Fingerprint() string {
	h := sha256.New()

	for _, d := range r.descriptors {
		h.Write([]byte(d.typeID))
		h.Write([]byte{0})
		h.Write([]byte(d.entityType))
		h.Write([]byte{0})
		h.Write([]byte(d.primaryKey))
		h.Write([]byte{0})

		for _, f := range d.fields {
			h.Write([]byte(f.Name))
			h.Write([]byte{1})
			h.Write([]byte(strconv.FormatFloat(f.Boost, 'g', -1, 64)))
			h.Write([]byte{1})
		}
		h.Write([]byte{0})

		h.Write([]byte(d.optional.Mode.String()))
		h.Write([]byte{0})
		if d.optional.Enabled() {
			h.Write([]byte(d.optional.FieldName()))
		}
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
