package language

import (
	"bytes"
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"github.com/vektah/gqlparser/v2/validator/rules"
)

// ParseQuery parses an executable document without validating it against a
// schema.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates the given SDL sources as one schema.
func LoadSchema(sources ...*Source) (*Schema, error) {
	s, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks doc against s with the default rules minus the named
// ones. Field, fragment and variable definitions are resolved in place.
func Validate(s *Schema, doc *QueryDocument, skip ...string) gqlerror.List {
	r := rules.NewDefaultRules()
	for _, name := range skip {
		r.RemoveRule(name)
	}
	return validator.ValidateWithRules(s, doc, r)
}

// Format renders doc the way gqlparser prints executable documents. The
// output is stable for identical input.
func Format(doc *QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf, formatter.WithIndent("  ")).FormatQueryDocument(doc)
	return buf.String()
}

// SelectOperation returns the operation named name, or the only operation
// when name is empty.
func SelectOperation(doc *QueryDocument, name string) (*OperationDefinition, error) {
	if name != "" {
		op := doc.Operations.ForName(name)
		if op == nil {
			return nil, fmt.Errorf("operation %q not found", name)
		}
		return op, nil
	}
	switch len(doc.Operations) {
	case 0:
		return nil, fmt.Errorf("document contains no operations")
	case 1:
		return doc.Operations[0], nil
	default:
		return nil, fmt.Errorf("document contains %d operations, an operation name is required", len(doc.Operations))
	}
}

// UsedFragments returns the fragment definitions reachable from set, in the
// order they are first referenced.
func UsedFragments(doc *QueryDocument, set SelectionSet) []*FragmentDefinition {
	var out []*FragmentDefinition
	seen := map[string]bool{}
	var walk func(SelectionSet)
	walk = func(set SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *Field:
				walk(s.SelectionSet)
			case *InlineFragment:
				walk(s.SelectionSet)
			case *FragmentSpread:
				if seen[s.Name] {
					continue
				}
				seen[s.Name] = true
				def := doc.Fragments.ForName(s.Name)
				if def == nil {
					continue
				}
				out = append(out, def)
				walk(def.SelectionSet)
			}
		}
	}
	walk(set)
	return out
}
