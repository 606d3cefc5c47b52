package collection

import (
	"fmt"
	"strings"
	"time"
)

// FieldKind es el discriminador del tipo de campo.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
	KindList   FieldKind = "list"
	KindUpload FieldKind = "upload"
)

// DateNow es el default especial de un campo date que toma el instante de creación.
const DateNow = "now"

// ParseFieldKind convierte el tag de tipo en un FieldKind conocido.
// "datetime" se acepta como alias de date.
func ParseFieldKind(s string) (FieldKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "number":
		return KindNumber, nil
	case "date", "datetime":
		return KindDate, nil
	case "list":
		return KindList, nil
	case "upload":
		return KindUpload, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// Field describe un campo del schema de una colección.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Default  any
	// Fields es el sub-schema de cada item (solo KindList).
	Fields []Field
}

// HasDefault indica si el campo declara un default.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// DefaultValue resuelve el default del campo según su variante.
// El segundo valor es false si el campo no declara default.
func (f Field) DefaultValue(now time.Time) (any, bool) {
	if f.Default == nil {
		return nil, false
	}
	switch f.Kind {
	case KindText, KindUpload:
		return fmt.Sprint(f.Default), true
	case KindNumber:
		return toFloat(f.Default)
	case KindDate:
		if s, ok := f.Default.(string); ok {
			if strings.EqualFold(s, DateNow) {
				return now.UTC().Format(time.RFC3339), true
			}
			return s, true
		}
		if t, ok := f.Default.(time.Time); ok {
			return t.UTC().Format(time.RFC3339), true
		}
		return nil, false
	case KindList:
		if items, ok := f.Default.([]any); ok {
			out := make([]any, len(items))
			copy(out, items)
			return out, true
		}
		return []any{}, true
	}
	return nil, false
}

// validate verifica la declaración del campo (no los valores).
func (f Field) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("field name is required")
	}
	if _, err := ParseFieldKind(string(f.Kind)); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	if f.Kind != KindList && len(f.Fields) > 0 {
		return fmt.Errorf("field %q: sub-fields only allowed on list", f.Name)
	}
	if f.Default != nil {
		if _, ok := f.DefaultValue(time.Time{}); !ok {
			return fmt.Errorf("field %q: invalid default for %s", f.Name, f.Kind)
		}
	}
	seen := map[string]bool{}
	for _, sub := range f.Fields {
		if seen[sub.Name] {
			return fmt.Errorf("field %q: duplicate sub-field %q", f.Name, sub.Name)
		}
		seen[sub.Name] = true
		if err := sub.validate(); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func toFloat(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return nil, false
}
