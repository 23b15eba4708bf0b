package validate

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
)

var integerPattern = regexp.MustCompile(`^-?\d+$`)

// coerce converts a raw decoded value into something mapstructure can assign
// to a field of type t without weak typing. The returned message describes
// the expected type when conversion is impossible.
func coerce(raw any, t reflect.Type) (any, string) {
	if raw == nil {
		return nil, ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var s string
		switch v := raw.(type) {
		case string:
			s = v
		case json.Number:
			s = v.String()
		default:
			return nil, "must be an integer"
		}
		if !integerPattern.MatchString(s) {
			return nil, "must be an integer"
		}
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return nil, "is out of range"
		}
		return n, ""

	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			return v, ""
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, "must be a boolean"
			}
			return b, ""
		default:
			return nil, "must be a boolean"
		}

	case reflect.String:
		if s, ok := raw.(string); ok {
			return s, ""
		}
		return nil, "must be a string"
	}

	return raw, ""
}
