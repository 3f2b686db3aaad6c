package typeddoc_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hanpama/typeddoc"
	"github.com/hanpama/typeddoc/internal/ratesapi"
	"github.com/stretchr/testify/require"
)

func TestBindRejectsMisspelledKey(t *testing.T) {
	_, err := typeddoc.Bind[ratesapi.RatesQueryVariables](map[string]any{"currency_invalid": "USD"})
	require.EqualError(t, err,
		"Type '{ currency_invalid: string; }' is not assignable to type 'Exact<{ currency: string; }>'.")
	var mismatch *typeddoc.MismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "{ currency: string; }", mismatch.Expected)
}

func TestBindAcceptsExactVariables(t *testing.T) {
	v, err := typeddoc.BindFor(ratesapi.RatesQueryDocument, map[string]any{"currency": "USD"})
	require.NoError(t, err)
	require.Equal(t, ratesapi.RatesQueryVariables{Currency: "USD"}, v)
}

func TestCheckExact(t *testing.T) {
	setRate := reflect.TypeFor[ratesapi.SetRateMutationVariables]()
	tests := []struct {
		name   string
		input  map[string]any
		target reflect.Type
		err    string
	}{
		{
			name:   "missing required key",
			input:  map[string]any{},
			target: reflect.TypeFor[ratesapi.RatesQueryVariables](),
			err:    "Type '{}' is not assignable to type 'Exact<{ currency: string; }>'.",
		},
		{
			name:   "wrong value type",
			input:  map[string]any{"currency": 1.0},
			target: reflect.TypeFor[ratesapi.RatesQueryVariables](),
			err:    "Type '{ currency: number; }' is not assignable to type 'Exact<{ currency: string; }>'.",
		},
		{
			name:   "nested optional field omitted",
			input:  map[string]any{"input": map[string]any{"currency": "EUR", "rate": 0.9}},
			target: setRate,
		},
		{
			name:   "nested null for pointer",
			input:  map[string]any{"input": map[string]any{"currency": "EUR", "rate": json.Number("1"), "name": nil}},
			target: setRate,
		},
		{
			name:   "nested extra key",
			input:  map[string]any{"input": map[string]any{"currency": "EUR", "rate": 0.9, "extra": true}},
			target: setRate,
			err:    "Type '{ input: { currency: string; extra: boolean; rate: number; }; }' is not assignable to type 'Exact<{ input: { currency: string; rate: number; name?: string | null; }; }>'.",
		},
		{
			name:   "map target accepts any keys",
			input:  map[string]any{"anything": []any{1.0, "x"}},
			target: typeddoc.FallbackType(),
		},
		{
			name:  "integer field rejects fractions",
			input: map[string]any{"n": 1.5},
			target: reflect.TypeFor[struct {
				N int `json:"n"`
			}](),
			err: "Type '{ n: number; }' is not assignable to type 'Exact<{ n: number; }>'.",
		},
		{
			name:  "sized integer rejects overflow",
			input: map[string]any{"n": 300.0},
			target: reflect.TypeFor[struct {
				N int8 `json:"n"`
			}](),
			err: "Type '{ n: number; }' is not assignable to type 'Exact<{ n: number; }>'.",
		},
		{
			name:  "sized integer accepts its bounds",
			input: map[string]any{"lo": -128.0, "hi": json.Number("127"), "u": uint64(255)},
			target: reflect.TypeFor[struct {
				Lo int8  `json:"lo"`
				Hi int8  `json:"hi"`
				U  uint8 `json:"u"`
			}](),
		},
		{
			name:  "unsigned integer rejects negatives",
			input: map[string]any{"u": -1},
			target: reflect.TypeFor[struct {
				U uint `json:"u"`
			}](),
			err: "Type '{ u: number; }' is not assignable to type 'Exact<{ u: number; }>'.",
		},
		{
			name:  "list elements are checked",
			input: map[string]any{"tags": []any{"a", 2.0}},
			target: reflect.TypeFor[struct {
				Tags []string `json:"tags"`
			}](),
			err: "Type '{ tags: (string | number)[]; }' is not assignable to type 'Exact<{ tags: string[]; }>'.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := typeddoc.CheckExact(tt.input, tt.target)
			if tt.err == "" {
				require.NoError(t, err)
				return
			}
			require.EqualError(t, err, tt.err)
		})
	}
}

func TestBindOverflowIsMismatch(t *testing.T) {
	_, err := typeddoc.Bind[struct {
		N int8 `json:"n"`
	}](map[string]any{"n": 300.0})
	var mismatch *typeddoc.MismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestCheckExactNilTarget(t *testing.T) {
	require.EqualError(t, typeddoc.CheckExact(map[string]any{}, nil), "typeddoc: nil target type")
}

func TestShapes(t *testing.T) {
	type inner struct {
		A string `json:"a"`
	}
	type embedded struct {
		E bool `json:"e"`
	}
	type outer struct {
		embedded
		In     inner           `json:"in"`
		Opt    *int            `json:"opt"`
		List   []inner         `json:"list,omitempty"`
		Meta   map[string]int  `json:"meta"`
		Raw    json.RawMessage `json:"raw"`
		Skip   string          `json:"-"`
		Any    any             `json:"any"`
		hidden string
	}
	got := typeddoc.TypeShape(reflect.TypeFor[outer]())
	want := "{ e: boolean; in: { a: string; }; opt?: number | null; list?: { a: string; }[]; meta: { [key: string]: number; }; raw: any; any: any; }"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("shape mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "never[]", typeddoc.ValueShape([]any{}))
	require.Equal(t, "{ a: null; b: string[]; }", typeddoc.ValueShape(map[string]any{"b": []any{"x"}, "a": nil}))
}
