package typeddoc

import (
	"errors"
	"fmt"

	"github.com/hanpama/typeddoc/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
)

var ErrNoFragment = errors.New("typeddoc: document contains no fragments")

// Fragment is a fragment definition bound to the shape R of the data it
// selects. Cache accessors use it to read and write a single entity.
type Fragment[R any] struct {
	source string
	name   string
	on     string

	_ [0]func() R
}

// NewFragment parses source and selects its first fragment.
func NewFragment[R any](source string) (*Fragment[R], error) {
	doc, err := language.ParseQuery(source)
	if err != nil {
		return nil, fmt.Errorf("typeddoc: parse: %w", err)
	}
	if len(doc.Fragments) == 0 {
		return nil, ErrNoFragment
	}
	return fragmentOf[R](source, doc.Fragments[0]), nil
}

// MustFragment is like NewFragment but panics on error.
func MustFragment[R any](source string) *Fragment[R] {
	f, err := NewFragment[R](source)
	if err != nil {
		panic(err)
	}
	return f
}

func fragmentOf[R any](source string, def *ast.FragmentDefinition) *Fragment[R] {
	return &Fragment[R]{source: source, name: def.Name, on: def.TypeCondition}
}

func (f *Fragment[R]) Source() string { return f.source }

// Name is the fragment's name.
func (f *Fragment[R]) Name() string { return f.name }

// TypeCondition is the type the fragment applies to.
func (f *Fragment[R]) TypeCondition() string { return f.on }
