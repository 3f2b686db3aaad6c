package codegen

import (
	"github.com/dave/jennifer/jen"
	"github.com/vektah/gqlparser/v2/ast"
)

// field is one response key of a selection set after fragments are merged.
type field struct {
	key string
	typ *ast.Type
	// sub-selections of every occurrence of key
	sel ast.SelectionSet
	// only selected under a type condition narrower than the parent
	optional bool
}

// collect flattens set into fields in first-seen order. Fields selected
// through an inline fragment or spread on a different type than parent are
// optional since the concrete object may not match.
func (e *emitter) collect(parent string, set ast.SelectionSet, optional bool, fields []*field, index map[string]*field) []*field {
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			if f, ok := index[key]; ok {
				f.sel = append(f.sel, s.SelectionSet...)
				f.optional = f.optional && optional
				continue
			}
			f := &field{key: key, sel: append(ast.SelectionSet(nil), s.SelectionSet...), optional: optional}
			switch {
			case s.Name == "__typename":
				f.typ = ast.NonNullNamedType("String", nil)
			case s.Definition != nil:
				f.typ = s.Definition.Type
			default:
				e.fail("field %s on %s was not resolved against the schema", s.Name, parent)
				continue
			}
			index[key] = f
			fields = append(fields, f)
		case *ast.InlineFragment:
			narrow := optional || (s.TypeCondition != "" && s.TypeCondition != parent)
			fields = e.collect(parent, s.SelectionSet, narrow, fields, index)
		case *ast.FragmentSpread:
			def := s.Definition
			if def == nil {
				def = e.doc.Fragments.ForName(s.Name)
			}
			if def == nil {
				e.fail("fragment %s is not defined", s.Name)
				continue
			}
			narrow := optional || def.TypeCondition != parent
			fields = e.collect(parent, def.SelectionSet, narrow, fields, index)
		}
	}
	return fields
}

// object declares the struct name for set selected on the GraphQL type
// parent, followed by the structs of its nested selections.
func (e *emitter) object(name, what, parent string, set ast.SelectionSet) {
	e.declare(name, what)
	fields := e.collect(parent, set, false, nil, map[string]*field{})

	type nested struct {
		name, parent string
		sel          ast.SelectionSet
	}
	var children []nested
	seen := map[string]string{}
	codes := make([]jen.Code, 0, len(fields))
	for _, f := range fields {
		goName := pascal(f.key)
		if f.key == "__typename" {
			goName = "Typename"
		}
		if prev, ok := seen[goName]; ok {
			e.fail("%s: fields %s and %s both map to %s.%s", what, prev, f.key, name, goName)
			continue
		}
		seen[goName] = f.key

		var child string
		named := f.typ.Name()
		if def := e.schema.Types[named]; def != nil && isComposite(def.Kind) {
			child = name + goName + pascal(named)
			children = append(children, nested{name: child, parent: named, sel: f.sel})
		}
		t := e.goType(f.typ, child)
		if f.optional && f.typ.NonNull && f.typ.Elem == nil {
			t = jen.Op("*").Add(t)
		}
		codes = append(codes, jen.Id(goName).Add(t).Tag(map[string]string{"json": f.key}))
	}
	e.add(jen.Type().Id(name).Struct(codes...))

	for _, c := range children {
		e.object(c.name, what, c.parent, c.sel)
	}
}

func isComposite(k ast.DefinitionKind) bool {
	return k == ast.Object || k == ast.Interface || k == ast.Union
}

// variables declares the variables struct of an operation. Variables that are
// nullable or have a default may be omitted.
func (e *emitter) variables(name, what string, defs ast.VariableDefinitionList) {
	e.declare(name, what)
	codes := make([]jen.Code, 0, len(defs))
	for _, v := range defs {
		t := e.goType(v.Type, "")
		tag := v.Variable
		if !v.Type.NonNull || v.DefaultValue != nil {
			tag += ",omitempty"
			if v.Type.NonNull && v.Type.Elem == nil {
				t = jen.Op("*").Add(t)
			}
		}
		codes = append(codes, jen.Id(pascal(v.Variable)).Add(t).Tag(map[string]string{"json": tag}))
	}
	e.add(jen.Type().Id(name).Struct(codes...))
}

// input declares an input object struct the first time it is referenced.
func (e *emitter) input(def *ast.Definition) {
	if e.inputs[def.Name] {
		return
	}
	e.inputs[def.Name] = true
	name := pascal(def.Name)
	e.declare(name, "input "+def.Name)

	codes := make([]jen.Code, 0, len(def.Fields))
	for _, f := range def.Fields {
		t := e.goType(f.Type, "")
		tag := f.Name
		if !f.Type.NonNull {
			tag += ",omitempty"
		}
		codes = append(codes, jen.Id(pascal(f.Name)).Add(t).Tag(map[string]string{"json": tag}))
	}
	decl := jen.Type().Id(name).Struct(codes...)
	if def.Description != "" {
		decl = comment(def.Description).Line().Add(decl)
	}
	e.add(decl)
}

// goType maps a GraphQL type reference to Go. Nullable named types become
// pointers and lists become slices. nested names the struct generated for a
// composite type.
func (e *emitter) goType(t *ast.Type, nested string) *jen.Statement {
	if t.Elem != nil {
		return jen.Index().Add(e.goType(t.Elem, nested))
	}
	var base *jen.Statement
	def := e.schema.Types[t.NamedType]
	switch {
	case def == nil:
		e.fail("unknown type %s", t.NamedType)
		base = jen.Any()
	case def.Kind == ast.Scalar:
		base = e.scalar(def.Name)
	case def.Kind == ast.Enum:
		e.enums[def.Name] = def
		base = jen.Id(pascal(def.Name))
	case def.Kind == ast.InputObject:
		e.input(def)
		base = jen.Id(pascal(def.Name))
	default:
		base = jen.Id(nested)
	}
	if !t.NonNull {
		return jen.Op("*").Add(base)
	}
	return base
}

func (e *emitter) scalar(name string) *jen.Statement {
	if mapped, ok := e.cfg.Scalars[name]; ok {
		pkg, typ, err := splitGoType(mapped)
		if err != nil {
			e.fail("scalar %s: %v", name, err)
			return jen.Any()
		}
		if pkg == "" {
			return jen.Id(typ)
		}
		return jen.Qual(pkg, typ)
	}
	switch name {
	case "String", "ID":
		return jen.String()
	case "Int":
		return jen.Int()
	case "Float":
		return jen.Float64()
	case "Boolean":
		return jen.Bool()
	}
	return jen.Qual("encoding/json", "RawMessage")
}
