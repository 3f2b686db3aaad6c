package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/hanpama/typeddoc/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

const header = "Code generated by typeddoc. DO NOT EDIT."

type emitter struct {
	cfg    *Config
	schema *ast.Schema
	doc    *ast.QueryDocument
	logger *zap.Logger

	body     []jen.Code
	declared map[string]string
	enums    map[string]*ast.Definition
	inputs   map[string]bool
	err      error
}

func newEmitter(cfg *Config, schema *ast.Schema, doc *ast.QueryDocument, logger *zap.Logger) *emitter {
	return &emitter{
		cfg:      cfg,
		schema:   schema,
		doc:      doc,
		logger:   logger,
		declared: map[string]string{},
		enums:    map[string]*ast.Definition{},
		inputs:   map[string]bool{},
	}
}

func (e *emitter) file() (*File, error) {
	out := &File{Output: e.cfg.Output, Package: e.cfg.Package}

	for _, frag := range e.doc.Fragments {
		out.Fragments = append(out.Fragments, e.fragment(frag))
	}
	for _, op := range e.doc.Operations {
		out.Operations = append(out.Operations, e.operation(op))
	}

	names := make([]string, 0, len(e.enums))
	for name := range e.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	var enums []jen.Code
	for _, name := range names {
		e.declare(pascal(name), "enum "+name)
		enums = append(enums, e.enum(e.enums[name])...)
	}
	if e.err != nil {
		return nil, e.err
	}

	f := jen.NewFile(e.cfg.Package)
	f.HeaderComment(header)
	f.ImportName(e.cfg.Import, "typeddoc")
	f.ImportName(e.clientPath(), "client")
	for _, c := range append(enums, e.body...) {
		f.Add(c)
		f.Line()
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("codegen: render: %w", err)
	}
	out.Content = buf.Bytes()
	return out, nil
}

func (e *emitter) clientPath() string { return e.cfg.Import + "/client" }

func (e *emitter) fail(format string, args ...any) {
	if e.err == nil {
		e.err = fmt.Errorf("codegen: "+format, args...)
	}
}

// declare reserves a top-level Go name for what.
func (e *emitter) declare(name, what string) {
	if prev, ok := e.declared[name]; ok {
		e.fail("%s and %s both generate %s", prev, what, name)
		return
	}
	e.declared[name] = what
}

func (e *emitter) add(c jen.Code) { e.body = append(e.body, c) }

func (e *emitter) operation(op *ast.OperationDefinition) string {
	kind := pascal(string(op.Operation))
	result := pascal(op.Name) + kind
	vars := result + "Variables"
	docName := result + "Document"
	what := fmt.Sprintf("%s %s", op.Operation, op.Name)

	root := e.rootType(op.Operation)
	if root == nil {
		e.fail("%s: schema has no %s type", what, op.Operation)
		return result
	}
	e.object(result, what, root.Name, op.SelectionSet)
	e.variables(vars, what, op.VariableDefinitions)

	e.declare(docName, what)
	src := language.Format(&ast.QueryDocument{
		Operations: ast.OperationList{op},
		Fragments:  language.UsedFragments(e.doc, op.SelectionSet),
	})
	e.add(jen.Var().Id(docName).Op("=").
		Qual(e.cfg.Import, "Must").Types(jen.Id(result), jen.Id(vars)).
		Call(source(src)))

	if e.cfg.Adapters {
		e.adapter(op, result, vars, docName)
	}
	e.logger.Debug("generated operation", zap.String("operation", op.Name), zap.String("type", result))
	return result
}

func (e *emitter) rootType(op ast.Operation) *ast.Definition {
	switch op {
	case ast.Query:
		return e.schema.Query
	case ast.Mutation:
		return e.schema.Mutation
	case ast.Subscription:
		return e.schema.Subscription
	}
	return nil
}

func (e *emitter) fragment(def *ast.FragmentDefinition) string {
	name := pascal(def.Name) + "Fragment"
	what := "fragment " + def.Name
	e.object(name, what, def.TypeCondition, def.SelectionSet)

	docName := name + "Document"
	e.declare(docName, what)
	frags := append(ast.FragmentDefinitionList{def}, language.UsedFragments(e.doc, def.SelectionSet)...)
	src := language.Format(&ast.QueryDocument{Fragments: frags})
	e.add(jen.Var().Id(docName).Op("=").
		Qual(e.cfg.Import, "MustFragment").Types(jen.Id(name)).
		Call(source(src)))
	return name
}

// source renders a document as a raw string literal when it can.
func source(src string) jen.Code {
	src = strings.TrimRight(src, "\n")
	if strings.Contains(src, "`") {
		return jen.Lit(src)
	}
	return jen.Op("`" + src + "`")
}

func (e *emitter) adapter(op *ast.OperationDefinition, result, vars, docName string) {
	fn := pascal(op.Name)
	e.declare(fn, fmt.Sprintf("%s %s", op.Operation, op.Name))
	cl := e.clientPath()

	var ret jen.Code
	var call string
	switch op.Operation {
	case ast.Mutation:
		ret, call = jen.Op("*").Qual(cl, "FetchResult").Types(jen.Id(result)), "Mutate"
	case ast.Subscription:
		ret, call = jen.Op("<-").Chan().Op("*").Qual(cl, "QueryResult").Types(jen.Id(result), jen.Id(vars)), "Subscribe"
	default:
		ret, call = jen.Op("*").Qual(cl, "QueryResult").Types(jen.Id(result), jen.Id(vars)), "Query"
	}
	e.add(jen.Commentf("%s runs the %s %s.", fn, op.Name, op.Operation).Line().Func().Id(fn).Params(
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("c").Op("*").Qual(cl, "Client"),
		jen.Id("variables").Id(vars),
		jen.Id("opts").Op("...").Qual(cl, "CallOption"),
	).Params(ret, jen.Error()).Block(
		jen.Return(jen.Qual(cl, call).Call(
			jen.Id("ctx"), jen.Id("c"), jen.Id(docName), jen.Id("variables"), jen.Id("opts").Op("..."),
		)),
	))
}

func (e *emitter) enum(def *ast.Definition) []jen.Code {
	name := pascal(def.Name)
	decl := jen.Type().Id(name).String()
	if def.Description != "" {
		decl = comment(def.Description).Line().Add(decl)
	}
	out := []jen.Code{decl}
	values := make([]jen.Code, 0, len(def.EnumValues))
	for _, v := range def.EnumValues {
		e.declare(name+enumValue(v.Name), "enum value "+def.Name+"."+v.Name)
		values = append(values, jen.Id(name+enumValue(v.Name)).Id(name).Op("=").Lit(v.Name))
	}
	return append(out, jen.Const().Defs(values...))
}

// comment renders a schema description as a line comment block.
func comment(description string) *jen.Statement {
	lines := strings.Split(strings.TrimSpace(description), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight("// "+strings.TrimSpace(l), " ")
	}
	return jen.Comment(strings.Join(lines, "\n"))
}
