package entity

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ErrNotWritable is returned by SetAttribute when the target cannot be set.
var ErrNotWritable = errors.New("attribute not writable")

// ReadNamedPath reads a value by name from v. The path may be dotted
// ("meta.tags") to descend into nested values. The second result is false
// when any segment of the path does not exist.
func ReadNamedPath(v any, path string) (any, bool) {
	if v == nil || path == "" {
		return nil, false
	}

	// Attribute names may legitimately contain dots.
	if r, ok := v.(AttributeReader); ok {
		if val, found := r.Attribute(path); found {
			return val, true
		}
	}

	cur := v
	for _, seg := range strings.Split(path, ".") {
		next, ok := readSegment(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func readSegment(v any, name string) (any, bool) {
	if v == nil {
		return nil, false
	}
	if r, ok := v.(AttributeReader); ok {
		return r.Attribute(name)
	}

	rv, ok := indirect(reflect.ValueOf(v))
	if !ok {
		return nil, false
	}

	switch rv.Kind() {
	case reflect.Map:
		key, ok := mapKey(rv.Type().Key(), name)
		if !ok {
			return nil, false
		}
		mv := rv.MapIndex(key)
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		fv, ok := structField(rv, name)
		if !ok {
			return nil, false
		}
		return fv.Interface(), true
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= rv.Len() {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// SetAttribute sets a named attribute on e. Entities implementing
// AttributeWriter are used directly; otherwise e must be a pointer to a
// struct or a map.
func SetAttribute(e Entity, name string, value any) error {
	if w, ok := e.(AttributeWriter); ok {
		w.SetAttribute(name, value)
		return nil
	}

	rv := reflect.ValueOf(e)
	if rv.Kind() == reflect.Map {
		key, ok := mapKey(rv.Type().Key(), name)
		if !ok || rv.IsNil() {
			return fmt.Errorf("%w: %s", ErrNotWritable, name)
		}
		elem := reflect.New(rv.Type().Elem()).Elem()
		if err := assign(elem, value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrNotWritable, name, err)
		}
		rv.SetMapIndex(key, elem)
		return nil
	}

	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: %s: %T is not a pointer", ErrNotWritable, name, e)
	}
	sv := rv.Elem()
	if sv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s: %T is not a struct pointer", ErrNotWritable, name, e)
	}
	fv, ok := structField(sv, name)
	if !ok || !fv.CanSet() {
		return fmt.Errorf("%w: %s", ErrNotWritable, name)
	}
	if err := assign(fv, value); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNotWritable, name, err)
	}
	return nil
}

func indirect(rv reflect.Value) (reflect.Value, bool) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, rv.IsValid()
}

func mapKey(keyType reflect.Type, name string) (reflect.Value, bool) {
	switch keyType.Kind() {
	case reflect.String:
		return reflect.ValueOf(name).Convert(keyType), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n).Convert(keyType), true
	case reflect.Interface:
		return reflect.ValueOf(name), true
	}
	return reflect.Value{}, false
}

// structField finds a field by `search` tag, then `json` tag, then
// case-insensitive Go name.
func structField(rv reflect.Value, name string) (reflect.Value, bool) {
	fields := reflect.VisibleFields(rv.Type())

	for _, tag := range []string{"search", "json"} {
		for _, sf := range fields {
			if !sf.IsExported() || sf.Anonymous {
				continue
			}
			tagName, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
			if tagName == name && tagName != "-" {
				return fieldByIndex(rv, sf.Index)
			}
		}
	}
	for _, sf := range fields {
		if sf.IsExported() && !sf.Anonymous && strings.EqualFold(sf.Name, name) {
			return fieldByIndex(rv, sf.Index)
		}
	}
	return reflect.Value{}, false
}

func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	fv, err := rv.FieldByIndexErr(index)
	if err != nil {
		return reflect.Value{}, false
	}
	return fv, true
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.SetZero()
		return nil
	}
	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}

	s, isString := value.(string)
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(FormatKey(value))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if isString {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return err
			}
			dst.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if isString {
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return err
			}
			dst.SetUint(n)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if isString {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			dst.SetFloat(f)
			return nil
		}
	}

	if !isString && src.Type().ConvertibleTo(dst.Type()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
}
