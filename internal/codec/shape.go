package codec

import (
	"fmt"
	"reflect"
	"strings"
)

// checkShape reports the first place where v cannot fill a value of type t.
// Struct fields are required unless tagged omitempty or held by pointer or
// interface; keys without a matching field are ignored.
func checkShape(t reflect.Type, v Value, path string) error {
	for t.Kind() == reflect.Pointer {
		if v == nil {
			return nil
		}
		t = t.Elem()
	}

	if v == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Map, reflect.Slice:
			return nil
		}
		return fmt.Errorf("%w at %s (want %s)", ErrNilValue, pathOrRoot(path), t)
	}

	switch t.Kind() {
	case reflect.Struct:
		if m, ok := v.(map[string]any); ok {
			return checkFields(t, m, path)
		}
	case reflect.Slice, reflect.Array:
		if items, ok := v.([]any); ok {
			for i, item := range items {
				if err := checkShape(t.Elem(), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case reflect.Map:
		if m, ok := v.(map[string]any); ok {
			for k, item := range m {
				if err := checkShape(t.Elem(), item, joinPath(path, k)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func checkFields(t reflect.Type, m map[string]any, path string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		tag := f.Tag.Get("msgpack")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if (f.Anonymous && name == "") || hasOption(opts, "inline") {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := checkFields(ft, m, path); err != nil {
					return err
				}
				continue
			}
		}

		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}

		value, ok := m[name]
		if !ok {
			if hasOption(opts, "omitempty") || f.Type.Kind() == reflect.Pointer || f.Type.Kind() == reflect.Interface {
				continue
			}
			return fmt.Errorf("%w %q", ErrMissingField, joinPath(path, name))
		}

		if err := checkShape(f.Type, value, joinPath(path, name)); err != nil {
			return err
		}
	}
	return nil
}

func hasOption(opts, want string) bool {
	for _, opt := range strings.Split(opts, ",") {
		if opt == want {
			return true
		}
	}
	return false
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
