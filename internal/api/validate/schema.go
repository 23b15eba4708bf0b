package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-viper/mapstructure/v2"
	"github.com/phrazzld/tasks-api/internal/domain"
)

// Location is a part of the request a schema applies to.
type Location string

// Locations in validation order.
const (
	LocationBody  Location = "body"
	LocationPath  Location = "path"
	LocationQuery Location = "query"
)

var order = map[Location]int{LocationBody: 0, LocationPath: 1, LocationQuery: 2}

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Defaulter is implemented by schema structs that need defaults applied
// before input is decoded over them.
type Defaulter interface {
	SetDefaults()
}

// Schema decodes and validates one request location.
type Schema interface {
	Location() Location
	// Fields describes the schema for generated API metadata.
	Fields() []Field
	// Example returns a sample value built from `example` tags, or nil.
	Example() map[string]any

	bind(r *http.Request) (any, error)
}

type schema[T any] struct {
	loc Location
}

// Body declares a JSON object body decoded into T.
func Body[T any]() Schema { return schema[T]{loc: LocationBody} }

// Path declares URL path parameters decoded into T.
func Path[T any]() Schema { return schema[T]{loc: LocationPath} }

// Query declares query string parameters decoded into T.
func Query[T any]() Schema { return schema[T]{loc: LocationQuery} }

func (s schema[T]) Location() Location { return s.loc }

func (s schema[T]) Fields() []Field {
	return describe(reflect.TypeOf((*T)(nil)).Elem(), s.loc)
}

func (s schema[T]) Example() map[string]any {
	return example(reflect.TypeOf((*T)(nil)).Elem())
}

func (s schema[T]) bind(r *http.Request) (any, error) {
	raw, err := s.read(r)
	if err != nil {
		return nil, err
	}

	value := new(T)
	if d, ok := any(value).(Defaulter); ok {
		d.SetDefaults()
	}

	input, err := coerceFields(raw, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  value,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, domain.NewValidationError("", "Invalid "+string(s.loc), err)
	}

	if err := structValidator.Struct(value); err != nil {
		return nil, fieldError(err)
	}
	return value, nil
}

func (s schema[T]) read(r *http.Request) (map[string]any, error) {
	switch s.loc {
	case LocationBody:
		return readBody(r)
	case LocationPath:
		out := map[string]any{}
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if key != "*" {
					out[key] = rctx.URLParams.Values[i]
				}
			}
		}
		return out, nil
	default:
		out := map[string]any{}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				out[key] = values[0]
			}
		}
		return out, nil
	}
}

// readBody decodes a JSON object body. The body is restored afterwards so
// later readers still see it. An empty body decodes as an empty object.
func readBody(r *http.Request) (map[string]any, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return map[string]any{}, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, domain.NewValidationError("", "Unable to read request body", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	if len(data) > maxBodyBytes {
		return nil, domain.NewValidationError("", "Request body too large", nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, domain.NewValidationError("", "Invalid JSON in request body", err)
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, domain.NewValidationError("", "Request body must be a JSON object", nil)
	}
	return obj, nil
}

// coerceFields converts raw input for every field of t, in declaration order,
// so the first conversion failure is deterministic.
func coerceFields(raw map[string]any, t reflect.Type) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		out[key] = value
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := fieldName(f)
		if name == "" {
			continue
		}
		value, ok := raw[name]
		if !ok {
			continue
		}
		coerced, msg := coerce(value, f.Type)
		if msg != "" {
			return nil, domain.NewValidationError(name, msg, nil)
		}
		out[name] = coerced
	}
	return out, nil
}

func fieldName(f reflect.StructField) string {
	if !f.IsExported() {
		return ""
	}
	tag := f.Tag.Get("mapstructure")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return strings.ToLower(f.Name)
}

type valueKey struct {
	loc Location
}

// Bind runs schemas in the order body, path, query regardless of the order
// given, and returns a request whose context carries each typed value. The
// first failure is returned and later locations are not inspected.
func Bind(r *http.Request, schemas ...Schema) (*http.Request, error) {
	sorted := make([]Schema, len(schemas))
	copy(sorted, schemas)
	sortByLocation(sorted)

	ctx := r.Context()
	for _, s := range sorted {
		value, err := s.bind(r)
		if err != nil {
			return r, err
		}
		ctx = contextWith(ctx, s.Location(), value)
	}
	return r.WithContext(ctx), nil
}

func sortByLocation(schemas []Schema) {
	for i := 1; i < len(schemas); i++ {
		for j := i; j > 0 && order[schemas[j].Location()] < order[schemas[j-1].Location()]; j-- {
			schemas[j], schemas[j-1] = schemas[j-1], schemas[j]
		}
	}
}

// ErrNotBound is returned by the accessors when the location was not
// declared for the route or holds a different type.
var ErrNotBound = errors.New("request value not bound")
