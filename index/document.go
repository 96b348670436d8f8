package index

import (
	"math"
	"strconv"
	"strings"
)

// Reserved field names written alongside every document.
const (
	FieldTypeID = "class_uid"
	FieldKey    = "primary_key"

	// BoostFieldPrefix prefixes the bucket fields used to apply boosts.
	BoostFieldPrefix = "boosted_"

	// IDSeparator joins type id and primary key into a document id.
	IDSeparator = ":"
)

// Field is one indexed value and its boost.
type Field struct {
	Boost float64
	Value any
}

// Document is an entity flattened for indexing. It is built per write and
// not retained.
type Document struct {
	TypeID string
	Key    string
	Fields map[string]Field
}

// ID returns the document id.
func (d Document) ID() string {
	return DocID(d.TypeID, d.Key)
}

// Hit is a raw search result.
type Hit struct {
	ID     string
	TypeID string
	Key    string
	Score  float64

	// Fragments holds highlighted snippets per field when requested.
	Fragments map[string][]string
}

// DocID joins a type id and a primary key.
func DocID(typeID, key string) string {
	return typeID + IDSeparator + key
}

// ParseDocID splits a document id. Type ids never contain the separator,
// so the key may.
func ParseDocID(id string) (typeID, key string, ok bool) {
	return strings.Cut(id, IDSeparator)
}

// IsReservedField reports whether name collides with a field the index
// writes itself.
func IsReservedField(name string) bool {
	return name == FieldTypeID || name == FieldKey || strings.HasPrefix(name, BoostFieldPrefix)
}

// BoostField returns the bucket field for a boost. Boosts that are not
// positive and finite use the bucket for 1.
func BoostField(boost float64) string {
	s := strconv.FormatFloat(QueryBoost(boost), 'f', -1, 64)
	return BoostFieldPrefix + strings.ReplaceAll(s, ".", "_")
}

// QueryBoost returns boost when it is positive and finite, and 1
// otherwise. bleve scores a zero boost as NaN.
func QueryBoost(boost float64) float64 {
	if boost <= 0 || math.IsNaN(boost) || math.IsInf(boost, 0) {
		return 1
	}
	return boost
}
