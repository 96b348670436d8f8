// Package fields turns an entity into the flat field map that gets
// indexed.
//
// Extract reads every declared field of a descriptor; ExtractOptional reads
// the dynamically named attributes enabled by the optional-attribute rule.
// Both are pure functions of the descriptor and the entity: a missing
// attribute yields an absent value or an empty map, never an error.
//
// Optional attribute collections that are plain sequences are re-keyed as
// "<field>_<i>" so anonymous list entries never collapse onto one name:
//
//	tags: ["go", "search"]  ->  {tags_0: go, tags_1: search}
//	meta: {color: "red"}    ->  {color: red}
//
// Each optional value may be a scalar, a {boost, value} map or an
// index.Field; all are normalized to index.Field with a default boost of 1.
package fields
