package omitnilpointers

import (
	"reflect"
)

// StructFields flattens a struct (or pointer to one) into a field map keyed by the given
// struct tag, falling back to the field name. Nil pointer fields are left out and non-nil
// ones are dereferenced, so the result can be passed straight to HSET.
func StructFields(value any, tag string) map[string]any {
	v := reflect.ValueOf(value)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return map[string]any{}
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return map[string]any{}
	}

	t := v.Type()
	fields := make(map[string]any, v.NumField())
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		name := sf.Tag.Get(tag)
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}

		field := v.Field(i)
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}
		fields[name] = field.Interface()
	}

	return fields
}
