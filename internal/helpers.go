package internal

import (
	"fmt"
	"reflect"
	"strconv"
)

// ContextValue returns the value stored under key with RequestContext.Set,
// or the zero value when it is absent or of another type.
func ContextValue[T any](rc *RequestContext, key any) T {
	if v, ok := rc.Get(key).(T); ok {
		return v
	}
	var zero T
	return zero
}

// PathValue returns a path variable converted to T.
// Missing or unparsable values yield the zero value.
func PathValue[T ~string | ~int | ~int64 | ~float64 | ~bool](rc *RequestContext, name string) T {
	var zero T
	raw, ok := rc.PathVar(name)
	if !ok {
		return zero
	}
	v, err := convertString(raw, reflect.TypeFor[T]())
	if err != nil {
		return zero
	}
	return v.Interface().(T)
}

// convertString parses raw into a value of type t. Interface targets
// receive the string itself.
func convertString(raw string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(f)
	case reflect.Interface:
		v.Set(reflect.ValueOf(raw))
	case reflect.Slice:
		if t.Elem().Kind() != reflect.String {
			return v, fmt.Errorf("unsupported target %s", t)
		}
		v = reflect.MakeSlice(t, 1, 1)
		v.Index(0).SetString(raw)
	default:
		return v, fmt.Errorf("unsupported target %s", t)
	}
	return v, nil
}
