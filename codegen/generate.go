// Package codegen generates typed document values from GraphQL operations.
//
// For every named operation the generated file declares the result type
// <Op><Kind>, a type per nested selection, the variables type
// <Op><Kind>Variables and a package-level <Op><Kind>Document bound to both.
// Fragments get a <Name>Fragment type and a <Name>FragmentDocument.
package codegen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	"github.com/hanpama/typeddoc/internal/language"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"go.uber.org/zap"
)

var (
	ErrNoSchema     = errors.New("codegen: no schema documents found")
	ErrNoOperations = errors.New("codegen: no operations found")
)

// File is a generated Go source file. A File returned from a Cache is shared
// between callers and must not be modified.
type File struct {
	// Output is the configured output path.
	Output  string
	Package string
	Content []byte
	// Operations lists the generated result types in emission order.
	Operations []string
	Fragments  []string
}

// Write stores the file at path unless it already holds identical content.
func (f *File) Write(path string) (changed bool, err error) {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, f.Content) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

type options struct {
	logger *zap.Logger
}

type Option func(*options)

// WithLogger sets the logger used for per-operation debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Generate reads every document from disc, validates the operations against
// the schema and renders them as one Go file. Any schema or operation error
// aborts the run.
func Generate(ctx context.Context, cfg *Config, disc Discovery, opts ...Option) (*File, error) {
	o := newOptions(opts)
	in, err := load(ctx, disc)
	if err == nil {
		var f *File
		f, err = generate(cfg, in, o.logger)
		if err == nil {
			publish(ctx, cfg, f, false, nil)
			return f, nil
		}
	}
	publish(ctx, cfg, nil, false, err)
	return nil, err
}

func publish(ctx context.Context, cfg *Config, f *File, cached bool, err error) {
	e := events.GenerateFinish{Output: cfg.Output, Cached: cached, Err: err}
	if f != nil {
		e.Operations = len(f.Operations)
	}
	eventbus.Publish(ctx, e)
}

// inputs are the raw sources of one run.
type inputs struct {
	schema    []*ast.Source
	documents []*ast.Source
}

func load(ctx context.Context, disc Discovery) (*inputs, error) {
	metas, err := disc.ListMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("codegen: list documents: %w", err)
	}
	in := &inputs{}
	for _, m := range metas {
		content, err := disc.ReadDocument(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("codegen: %w", err)
		}
		src := &ast.Source{Name: m.FilePath, Input: content}
		switch m.Kind {
		case SchemaDocument:
			in.schema = append(in.schema, src)
		case OperationDocument:
			in.documents = append(in.documents, src)
		default:
			return nil, fmt.Errorf("codegen: %s: unknown document kind %q", m.FilePath, m.Kind)
		}
	}
	return in, nil
}

func generate(cfg *Config, in *inputs, logger *zap.Logger) (*File, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("codegen: %w", err)
	}
	if len(in.schema) == 0 {
		return nil, ErrNoSchema
	}
	schema, err := language.LoadSchema(in.schema...)
	if err != nil {
		return nil, fmt.Errorf("codegen: schema: %w", err)
	}

	doc := &ast.QueryDocument{}
	for _, src := range in.documents {
		d, err := parser.ParseQuery(src)
		if err != nil {
			return nil, fmt.Errorf("codegen: %w", err)
		}
		for _, op := range d.Operations {
			if op.Name == "" {
				return nil, fmt.Errorf("codegen: %s:%d: operations must be named", src.Name, op.Position.Line)
			}
		}
		doc.Operations = append(doc.Operations, d.Operations...)
		doc.Fragments = append(doc.Fragments, d.Fragments...)
	}
	if len(doc.Operations) == 0 && len(doc.Fragments) == 0 {
		return nil, ErrNoOperations
	}
	// fragments may exist only to be read from a store
	if errs := language.Validate(schema, doc, "NoUnusedFragments"); len(errs) > 0 {
		return nil, fmt.Errorf("codegen: %w", errs)
	}

	e := newEmitter(cfg, schema, doc, logger)
	return e.file()
}
