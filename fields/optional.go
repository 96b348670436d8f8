package fields

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/jonwraymond/entityindex/entity"
	"github.com/jonwraymond/entityindex/index"
	"github.com/jonwraymond/entityindex/registry"
)

// ExtractOptional reads the optional attributes of e according to the
// descriptor's rule. It returns an empty map when the rule is disabled or
// the collection is missing.
func ExtractOptional(d *registry.Descriptor, e entity.Entity) Fields {
	rule := d.OptionalAttributes()
	if !rule.Enabled() {
		return Fields{}
	}

	field := rule.FieldName()
	raw, ok := entity.ReadNamedPath(e, field)
	if !ok || raw == nil {
		return Fields{}
	}

	out := Fields{}
	for name, v := range collect(raw, field) {
		out[name] = Normalize(v)
	}
	return out
}

// collect names the entries of a raw collection. Sequences are re-keyed as
// "<field>_<i>"; a scalar is a one-element sequence.
func collect(raw any, field string) map[string]any {
	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	out := make(map[string]any)
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		out[field+"_0"] = raw
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out[sequenceKey(field, i)] = rv.Index(i).Interface()
		}
	case rv.Kind() == reflect.Map:
		if order, ok := sequentialKeys(rv); ok {
			for i, k := range order {
				out[sequenceKey(field, i)] = rv.MapIndex(k).Interface()
			}
			break
		}
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
	default:
		out[field+"_0"] = raw
	}
	return out
}

func sequenceKey(field string, i int) string {
	return field + "_" + strconv.Itoa(i)
}

// sequentialKeys reports whether the map keys are exactly 0..n-1, as
// integers or integer strings, and returns them in that order.
func sequentialKeys(rv reflect.Value) ([]reflect.Value, bool) {
	n := rv.Len()
	if n == 0 {
		return nil, false
	}
	ordered := make([]reflect.Value, n)
	for _, k := range rv.MapKeys() {
		i, ok := keyIndex(k)
		if !ok || i < 0 || i >= n || ordered[i].IsValid() {
			return nil, false
		}
		ordered[i] = k
	}
	return ordered, true
}

func keyIndex(k reflect.Value) (int, bool) {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := k.Int(); i < 0 || i > math.MaxInt {
			return 0, false
		}
		return int(k.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if k.Uint() > math.MaxInt {
			return 0, false
		}
		return int(k.Uint()), true
	case reflect.String:
		s := k.String()
		if s == "" || (len(s) > 1 && s[0] == '0') {
			return 0, false
		}
		i, err := strconv.Atoi(s)
		return i, err == nil
	}
	return 0, false
}

// Normalize turns an optional attribute value into an index.Field. It
// accepts index.Field values, maps holding only "boost" and "value" keys,
// and plain values. The boost defaults to 1.
func Normalize(v any) index.Field {
	switch f := v.(type) {
	case index.Field:
		if f.Boost == 0 {
			f.Boost = registry.DefaultBoost
		}
		return f
	case *index.Field:
		if f == nil {
			return index.Field{Boost: registry.DefaultBoost}
		}
		return Normalize(*f)
	}

	if boost, value, ok := boostValue(v); ok {
		return index.Field{Boost: boost, Value: value}
	}
	return index.Field{Boost: registry.DefaultBoost, Value: v}
}

func boostValue(v any) (float64, any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Len() == 0 || rv.Len() > 2 {
		return 0, nil, false
	}

	var boost, value any
	var hasBoost bool
	for _, k := range rv.MapKeys() {
		name, ok := k.Interface().(string)
		if !ok {
			if k.Kind() != reflect.String {
				return 0, nil, false
			}
			name = k.String()
		}
		switch name {
		case "boost":
			boost, hasBoost = rv.MapIndex(k).Interface(), true
		case "value":
			value = rv.MapIndex(k).Interface()
		default:
			return 0, nil, false
		}
	}

	b := registry.DefaultBoost
	if hasBoost {
		if f, ok := toFloat(boost); ok {
			b = f
		}
	}
	return b, value, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
