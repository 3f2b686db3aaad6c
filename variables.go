package typeddoc

import (
	"fmt"
	"reflect"
)

// EncodeVariables converts typed variables into the JSON object form that
// GraphQL transports and executors accept. A nil map or a zero-field
// struct yields nil.
func EncodeVariables(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	raw, err := wire.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("typeddoc: encode variables: %w", err)
	}
	var out map[string]any
	if err := wire.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("typeddoc: variables must encode to an object: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// DecodeResult decodes a JSON data payload into a new R. Empty and null
// payloads yield nil.
func DecodeResult[R any](data []byte) (*R, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	out := new(R)
	if err := wire.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("typeddoc: decode result: %w", err)
	}
	return out, nil
}
