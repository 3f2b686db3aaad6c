// Package typeddoc attaches a result type and a variables type to a GraphQL
// document value so that entry points accepting it can recover both without
// explicit type arguments.
//
// A *Document[R, V] is ordinary data at runtime: the operation source plus its
// parsed AST. R and V exist only in the static type, through a
// zero-size marker that is never populated.
//
//	var RatesQueryDocument = typeddoc.Must[RatesQuery, RatesQueryVariables](`query rates($currency: String!) { ... }`)
//
//	res, err := client.Query(ctx, c, RatesQueryDocument, RatesQueryVariables{Currency: "USD"})
//	// res.Data is *RatesQuery
package typeddoc

import (
	"errors"
	"fmt"

	"github.com/hanpama/typeddoc/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
)

// Kind classifies an operation as producing one result or a stream of them.
type Kind string

const (
	Single Kind = "single"
	Stream Kind = "stream"
)

// KindOf maps an operation type to its result kind.
func KindOf(op ast.Operation) Kind {
	if op == ast.Subscription {
		return Stream
	}
	return Single
}

var (
	ErrEmptyDocument    = errors.New("typeddoc: document contains no operations")
	ErrOperationMissing = errors.New("typeddoc: operation not found")
	ErrAnonymous        = errors.New("typeddoc: anonymous operation in a multi-operation document")
)

// Node is a GraphQL document without static result or variables types.
type Node interface {
	// Source is the serialized document sent over the wire.
	Source() string
	// OperationName is the operation selected for execution. It may be empty
	// for a single anonymous operation.
	OperationName() string
	// Operation is the type of the selected operation.
	Operation() ast.Operation
	// AST returns the parsed document.
	AST() (*ast.QueryDocument, error)
}

// Document is a Node that carries the result type R and the variables type V
// of its selected operation.
type Document[R, V any] struct {
	source string
	name   string
	op     ast.Operation
	doc    *ast.QueryDocument

	// never set; binds R and V to the type
	_ [0]func(V, Kind) R
}

// Untyped is the fallback typing used for documents without declared result
// and variables types.
type Untyped = Document[map[string]any, map[string]any]

// New parses source and returns a document bound to R and V. A document
// with several operations selects the first one; use WithOperationName to pick
// another.
func New[R, V any](source string) (*Document[R, V], error) {
	doc, err := language.ParseQuery(source)
	if err != nil {
		return nil, fmt.Errorf("typeddoc: parse: %w", err)
	}
	return fromParsed[R, V](source, doc)
}

// Must is like New but panics on error. Generated code uses it for
// package-level document values.
func Must[R, V any](source string) *Document[R, V] {
	d, err := New[R, V](source)
	if err != nil {
		panic(err)
	}
	return d
}

// FromAST formats doc and binds it to R and V.
func FromAST[R, V any](doc *ast.QueryDocument) (*Document[R, V], error) {
	if doc == nil {
		return nil, ErrEmptyDocument
	}
	return fromParsed[R, V](language.Format(doc), doc)
}

// Parse returns an untyped document.
func Parse(source string) (*Untyped, error) {
	return New[map[string]any, map[string]any](source)
}

func fromParsed[R, V any](source string, doc *ast.QueryDocument) (*Document[R, V], error) {
	if len(doc.Operations) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(doc.Operations) > 1 {
		for _, op := range doc.Operations {
			if op.Name == "" {
				return nil, ErrAnonymous
			}
		}
	}
	first := doc.Operations[0]
	return &Document[R, V]{
		source: source,
		name:   first.Name,
		op:     first.Operation,
		doc:    doc,
	}, nil
}

func (d *Document[R, V]) Source() string           { return d.source }
func (d *Document[R, V]) OperationName() string    { return d.name }
func (d *Document[R, V]) Operation() ast.Operation { return d.op }

// NewResult allocates a zero result. Libraries that accept documents through
// an interface use it to recover R without importing this package.
func (d *Document[R, V]) NewResult() *R { return new(R) }

// NewVariables allocates zero variables.
func (d *Document[R, V]) NewVariables() *V { return new(V) }

// Kind reports whether the selected operation yields one result or a stream.
func (d *Document[R, V]) Kind() Kind { return KindOf(d.op) }

// AST returns the parsed document.
func (d *Document[R, V]) AST() (*ast.QueryDocument, error) {
	if d.doc == nil {
		return nil, ErrEmptyDocument
	}
	return d.doc, nil
}

// WithOperationName returns a copy of d that selects the named operation.
// The caller keeps responsibility for R and V matching that operation.
func (d *Document[R, V]) WithOperationName(name string) (*Document[R, V], error) {
	doc, err := d.AST()
	if err != nil {
		return nil, err
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, fmt.Errorf("%w: %q", ErrOperationMissing, name)
	}
	return &Document[R, V]{source: d.source, name: op.Name, op: op.Operation, doc: doc}, nil
}

// Erase drops the static types of d. Extraction on the returned node yields
// the fallback types.
func (d *Document[R, V]) Erase() Node { return plain{d} }

func (d *Document[R, V]) String() string { return d.source }

// plain hides the typed methods of the wrapped document.
type plain struct{ n Node }

func (p plain) Source() string                   { return p.n.Source() }
func (p plain) OperationName() string            { return p.n.OperationName() }
func (p plain) Operation() ast.Operation         { return p.n.Operation() }
func (p plain) AST() (*ast.QueryDocument, error) { return p.n.AST() }

// Plain parses source into a Node that carries no result or variables type.
func Plain(source string) (Node, error) {
	d, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return plain{d}, nil
}
