package utils

import (
	"reflect"
	"strings"
)

// ColumnMode selects which DTO fields end up in an update map.
type ColumnMode int

const (
	// Patch keeps only non-nil pointer fields.
	Patch ColumnMode = iota
	// Replace keeps every field; nil pointers become SQL NULL.
	Replace
)

// UpdateColumns turns a pointer-to-struct DTO into a GORM Updates map.
// The key is the `gorm:"column:..."` name when present, else the json name.
// Fields without a json name or tagged json:"-" are skipped.
func UpdateColumns(dto any, mode ColumnMode) map[string]any {
	res := make(map[string]any)
	v := reflect.ValueOf(dto)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return res
	}
	s := v.Elem()
	if s.Kind() != reflect.Struct {
		return res
	}
	t := s.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := columnName(sf)
		if name == "" {
			continue
		}
		fv := s.Field(i)
		if fv.Kind() != reflect.Ptr {
			res[name] = fv.Interface()
			continue
		}
		switch {
		case !fv.IsNil():
			res[name] = fv.Elem().Interface()
		case mode == Replace:
			res[name] = nil
		}
	}
	return res
}

func columnName(sf reflect.StructField) string {
	for _, opt := range strings.Split(sf.Tag.Get("gorm"), ";") {
		if col, ok := strings.CutPrefix(strings.TrimSpace(opt), "column:"); ok && col != "" {
			return col
		}
	}
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
