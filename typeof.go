package typeddoc

import "reflect"

// typed is implemented only by *Document, so the types it reports are always
// the ones bound at construction.
type typed interface {
	resultType() reflect.Type
	variablesType() reflect.Type
}

func (*Document[R, V]) resultType() reflect.Type    { return reflect.TypeFor[R]() }
func (*Document[R, V]) variablesType() reflect.Type { return reflect.TypeFor[V]() }

var fallbackType = reflect.TypeFor[map[string]any]()

// FallbackType is what ResultOf and VariablesOf report for nodes that carry
// no static types.
func FallbackType() reflect.Type { return fallbackType }

// ResultOf returns the result type bound to n, or FallbackType when n is not
// a typed document.
func ResultOf(n Node) reflect.Type {
	if t, ok := n.(typed); ok {
		return t.resultType()
	}
	return fallbackType
}

// VariablesOf returns the variables type bound to n, or FallbackType when n
// is not a typed document.
func VariablesOf(n Node) reflect.Type {
	if t, ok := n.(typed); ok {
		return t.variablesType()
	}
	return fallbackType
}

// OperationTypeOf returns whether n yields a single result or a stream.
// Nodes that are not typed documents report Single.
func OperationTypeOf(n Node) Kind {
	if _, ok := n.(typed); ok {
		return KindOf(n.Operation())
	}
	return Single
}

// NewResult allocates a value of d's result type.
func NewResult[R, V any](*Document[R, V]) *R { return new(R) }

// NewVariables allocates a value of d's variables type.
func NewVariables[R, V any](*Document[R, V]) *V { return new(V) }
