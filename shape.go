package typeddoc

import (
	"encoding"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Shapes are rendered in TypeScript object-type notation because that is how
// the Exact diagnostic has always been worded.

// TypeShape renders the shape of a Go type as seen through encoding/json.
func TypeShape(t reflect.Type) string {
	return typeShape(t, map[reflect.Type]bool{})
}

func typeShape(t reflect.Type, visiting map[reflect.Type]bool) string {
	if t == nil {
		return "null"
	}
	if isOpaque(t) {
		return "any"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Interface:
		return "any"
	case reflect.Pointer:
		return typeShape(t.Elem(), visiting) + " | null"
	case reflect.Slice, reflect.Array:
		return arrayOf(typeShape(t.Elem(), visiting))
	case reflect.Map:
		return "{ [key: string]: " + typeShape(t.Elem(), visiting) + "; }"
	case reflect.Struct:
		if visiting[t] {
			return t.Name()
		}
		visiting[t] = true
		defer delete(visiting, t)
		fields := jsonFields(t)
		if len(fields) == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteString("{ ")
		for _, f := range fields {
			b.WriteString(f.name)
			if !f.required {
				b.WriteString("?")
			}
			b.WriteString(": ")
			b.WriteString(typeShape(f.typ, visiting))
			b.WriteString("; ")
		}
		b.WriteString("}")
		return b.String()
	}
	return "unknown"
}

// ValueShape renders the shape of a decoded JSON value. Object keys are
// sorted since Go maps carry no literal order.
func ValueShape(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float32, float64, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return "number"
	case []any:
		if len(x) == 0 {
			return "never[]"
		}
		var parts []string
		seen := map[string]bool{}
		for _, e := range x {
			s := ValueShape(e)
			if !seen[s] {
				seen[s] = true
				parts = append(parts, s)
			}
		}
		return arrayOf(strings.Join(parts, " | "))
	case map[string]any:
		if len(x) == 0 {
			return "{}"
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("{ ")
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(ValueShape(x[k]))
			b.WriteString("; ")
		}
		b.WriteString("}")
		return b.String()
	}
	return TypeShape(reflect.TypeOf(v))
}

func arrayOf(elem string) string {
	if strings.Contains(elem, " | ") {
		return "(" + elem + ")[]"
	}
	return elem + "[]"
}

type jsonField struct {
	name     string
	typ      reflect.Type
	required bool
}

// jsonFields lists the encoded fields of struct type t in declaration order,
// flattening untagged embedded structs.
func jsonFields(t reflect.Type) []jsonField {
	var out []jsonField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				out = append(out, jsonFields(ft)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, jsonField{
			name:     name,
			typ:      sf.Type,
			required: !strings.Contains(opts, "omitempty") && sf.Type.Kind() != reflect.Pointer,
		})
	}
	return out
}

var (
	jsonUnmarshalerType = reflect.TypeFor[json.Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// isOpaque reports types that decode themselves; their wire shape is unknown.
func isOpaque(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return false
	}
	pt := reflect.PointerTo(t)
	return pt.Implements(jsonUnmarshalerType) || pt.Implements(textUnmarshalerType)
}
