package index

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/entityindex/entity"
)

// Text renders a field value as indexable text. It reports false for nil
// values and empty collections.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		return x.Format(time.RFC3339), true
	case *time.Time:
		if x == nil {
			return "", false
		}
		return Text(*x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return entity.FormatKey(x), true
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return Text(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if s, ok := Text(rv.Index(i).Interface()); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), len(parts) > 0
	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
		})
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s, ok := Text(rv.MapIndex(k).Interface()); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " "), len(parts) > 0
	}
	return fmt.Sprint(v), true
}
