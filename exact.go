package typeddoc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var wire = jsoniter.ConfigCompatibleWithStandardLibrary

// MismatchError reports variables that do not fit the declared variables
// type of an operation.
type MismatchError struct {
	// Actual is the shape of the supplied value.
	Actual string
	// Expected is the shape of the declared variables type.
	Expected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("Type '%s' is not assignable to type 'Exact<%s>'.", e.Actual, e.Expected)
}

// CheckExact reports whether input fits target exactly: every key must be a
// field of target with a compatible value, and every required field must be
// present. Nested objects are checked the same way.
//
// Fields are required unless they are pointers or tagged omitempty. A map or
// interface target accepts any keys. Integer fields also reject values
// outside the range of their kind.
func CheckExact(input map[string]any, target reflect.Type) error {
	if target == nil {
		return errors.New("typeddoc: nil target type")
	}
	if !objectFits(input, target) {
		return &MismatchError{Actual: ValueShape(input), Expected: TypeShape(target)}
	}
	return nil
}

// Bind checks input against V exactly and decodes it into a V.
func Bind[V any](input map[string]any) (V, error) {
	var v V
	if err := CheckExact(input, reflect.TypeFor[V]()); err != nil {
		return v, err
	}
	if input == nil {
		return v, nil
	}
	raw, err := wire.Marshal(input)
	if err != nil {
		return v, fmt.Errorf("typeddoc: encode variables: %w", err)
	}
	if err := wire.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("typeddoc: decode variables: %w", err)
	}
	return v, nil
}

// BindFor is Bind with V taken from d.
func BindFor[R, V any](_ *Document[R, V], input map[string]any) (V, error) {
	return Bind[V](input)
}

func objectFits(input map[string]any, t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return false
		}
		for _, v := range input {
			if !fits(v, t.Elem()) {
				return false
			}
		}
		return true
	case reflect.Struct:
		if isOpaque(t) {
			return true
		}
		fields := jsonFields(t)
		byName := make(map[string]jsonField, len(fields))
		for _, f := range fields {
			byName[f.name] = f
		}
		for k, v := range input {
			f, ok := byName[k]
			if !ok || !fits(v, f.typ) {
				return false
			}
		}
		for _, f := range fields {
			if _, ok := input[f.name]; f.required && !ok {
				return false
			}
		}
		return true
	}
	return false
}

func fits(v any, t reflect.Type) bool {
	if t.Kind() == reflect.Interface || isOpaque(t) {
		return true
	}
	if v == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
			return true
		}
		return false
	}
	if t.Kind() == reflect.Pointer {
		return fits(v, t.Elem())
	}
	if reflect.TypeOf(v).AssignableTo(t) {
		return true
	}
	switch t.Kind() {
	case reflect.String:
		_, ok := v.(string)
		return ok
	case reflect.Bool:
		_, ok := v.(bool)
		return ok
	case reflect.Float32, reflect.Float64:
		_, ok := number(v)
		return ok
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fitsInt(v, t)
	case reflect.Slice, reflect.Array:
		list, ok := v.([]any)
		if !ok {
			return false
		}
		for _, e := range list {
			if !fits(e, t.Elem()) {
				return false
			}
		}
		return true
	case reflect.Map, reflect.Struct:
		obj, ok := v.(map[string]any)
		return ok && objectFits(obj, t)
	}
	return false
}

// fitsInt reports whether v is an integral number representable in the
// integer kind of t.
func fitsInt(v any, t reflect.Type) bool {
	slot := reflect.New(t).Elem()
	signed := slot.CanInt()
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			v = u
		}
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		i := rv.Int()
		if signed {
			return !slot.OverflowInt(i)
		}
		return i >= 0 && !slot.OverflowUint(uint64(i))
	case rv.CanUint():
		u := rv.Uint()
		if signed {
			return u <= math.MaxInt64 && !slot.OverflowInt(int64(u))
		}
		return !slot.OverflowUint(u)
	}
	f, ok := number(v)
	if !ok || f != math.Trunc(f) {
		return false
	}
	bits := float64(t.Bits())
	if signed {
		return f >= -math.Exp2(bits-1) && f < math.Exp2(bits-1)
	}
	return f >= 0 && f < math.Exp2(bits)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
