package index

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestDocIDRoundTrip(t *testing.T) {
	id := DocID("a1b2", "user:7")
	assert.Equal(t, "a1b2:user:7", id)

	typeID, key, ok := ParseDocID(id)
	assert.True(t, ok)
	assert.Equal(t, "a1b2", typeID)
	assert.Equal(t, "user:7", key)

	_, _, ok = ParseDocID("nosep")
	assert.False(t, ok)
}

func TestBoostField(t *testing.T) {
	assert.Equal(t, "boosted_1", BoostField(1))
	assert.Equal(t, "boosted_2_5", BoostField(2.5))
	assert.Equal(t, "boosted_1", BoostField(0))
	assert.Equal(t, "boosted_1", BoostField(-1))
	assert.Equal(t, "boosted_1", BoostField(math.NaN()))
	assert.Equal(t, "boosted_1", BoostField(math.Inf(1)))
}

func TestQueryBoost(t *testing.T) {
	assert.Equal(t, 2.5, QueryBoost(2.5))
	assert.Equal(t, 1.0, QueryBoost(0))
	assert.Equal(t, 1.0, QueryBoost(-3))
	assert.Equal(t, 1.0, QueryBoost(math.NaN()))
}

func TestIsReservedField(t *testing.T) {
	assert.True(t, IsReservedField("class_uid"))
	assert.True(t, IsReservedField("primary_key"))
	assert.True(t, IsReservedField("boosted_3"))
	assert.False(t, IsReservedField("title"))
}

func TestText(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var nilTime *time.Time

	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"string", "hello", "hello", true},
		{"bytes", []byte("raw"), "raw", true},
		{"bool", true, "true", true},
		{"int", 42, "42", true},
		{"float", 1.5, "1.5", true},
		{"time", ts, "2024-05-01T12:00:00Z", true},
		{"zero time", time.Time{}, "", false},
		{"nil time pointer", nilTime, "", false},
		{"stringer", label("x"), "label:x", true},
		{"error", errors.New("boom"), "boom", true},
		{"slice", []any{"a", nil, 2}, "a 2", true},
		{"empty slice", []string{}, "", false},
		{"map sorted by key", map[string]any{"b": "two", "a": "one"}, "one two", true},
		{"pointer", ptr("p"), "p", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr[T any](v T) *T { return &v }
