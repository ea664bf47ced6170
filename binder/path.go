package binder

import (
	"fmt"
	"net/http"
	"reflect"
)

// Path binds string fields tagged `path:"name"` using extractor, typically
// chi.URLParam. Only string fields are supported; ids in this API are strings.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("%w: target must be a pointer to struct, got %T", ErrInvalidPath, v)
		}
		rv = rv.Elem()
		rt := rv.Type()

		for i := range rt.NumField() {
			field := rt.Field(i)
			name := field.Tag.Get("path")
			if name == "" || name == "-" || !field.IsExported() {
				continue
			}
			if field.Type.Kind() != reflect.String {
				return fmt.Errorf("%w: field %s must be a string", ErrInvalidPath, field.Name)
			}
			value := extractor(r, name)
			if value == "" {
				return fmt.Errorf("%w: %s is required", ErrInvalidPath, name)
			}
			rv.Field(i).SetString(value)
		}
		return nil
	}
}
