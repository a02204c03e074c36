package confloader

import (
	"errors"
	"reflect"
	"time"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map provider.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form")

// mapProvider is a koanf provider over a nested map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// structToMap converts the koanf-tagged exported fields of v into a nested
// map. Untagged fields and fields tagged "-" are skipped.
func structToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return map[string]any{}
	}

	out := make(map[string]any)
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("koanf")
		if !f.IsExported() || tag == "" || tag == "-" {
			continue
		}
		fv := rv.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != durationType {
			out[tag] = structToMap(fv.Interface())
			continue
		}
		out[tag] = fv.Interface()
	}
	return out
}
