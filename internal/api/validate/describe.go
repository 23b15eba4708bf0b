package validate

import (
	"reflect"
	"strconv"
	"strings"
)

// Field describes one declared input for generated API metadata.
type Field struct {
	Name     string   `json:"name"`
	In       Location `json:"in"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Rules    string   `json:"rules,omitempty"`
}

func describe(t reflect.Type, loc Location) []Field {
	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		if name == "" {
			continue
		}

		var rules []string
		required := false
		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			switch rule {
			case "":
			case "required":
				required = true
			case "omitempty":
			default:
				rules = append(rules, rule)
			}
		}

		fields = append(fields, Field{
			Name:     name,
			In:       loc,
			Type:     typeName(f.Type),
			Required: required,
			Rules:    strings.Join(rules, ","),
		})
	}
	return fields
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}

// example builds a sample object from `example` tags, typed like the fields.
func example(t reflect.Type) map[string]any {
	var out map[string]any
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		raw, ok := f.Tag.Lookup("example")
		if name == "" || !ok {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		switch typeName(f.Type) {
		case "integer":
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				out[name] = n
				continue
			}
		case "boolean":
			if b, err := strconv.ParseBool(raw); err == nil {
				out[name] = b
				continue
			}
		}
		out[name] = raw
	}
	return out
}
