package binder

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Query binds URL query parameters into fields tagged `query`.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindTagged(v, "query", func(name string) []string { return q[name] })
	}
}

// Path binds chi route parameters into fields tagged `path`.
func Path() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		rc := chi.RouteContext(r.Context())
		if rc == nil {
			return ErrNotApplicable
		}
		return bindTagged(v, "path", func(name string) []string {
			if p := rc.URLParam(name); p != "" {
				return []string{p}
			}
			return nil
		})
	}
}

func bindTagged(v any, tag string, lookup func(name string) []string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w: target must be a non-nil pointer to struct", ErrInvalidParam)
	}
	rv = rv.Elem()
	rt := rv.Type()

	for i := range rt.NumField() {
		sf := rt.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		values := lookup(name)
		if len(values) == 0 {
			continue
		}
		if err := set(rv.Field(i), values); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParam, name, err)
		}
	}
	return nil
}

func set(field reflect.Value, values []string) error {
	switch field.Kind() {
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
		var out []string
		for _, v := range values {
			for part := range strings.SplitSeq(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
		field.Set(reflect.ValueOf(out).Convert(field.Type()))
	case reflect.String:
		field.SetString(values[0])
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(values[0], 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", values[0])
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(values[0])
		if err != nil {
			return fmt.Errorf("invalid boolean %q", values[0])
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}
