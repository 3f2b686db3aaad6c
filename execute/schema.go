package execute

import (
	"fmt"
	"reflect"
	"sync"

	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"
)

// Schema is an executable schema whose root resolver can be chosen per call.
// graphql-go binds the resolver when the schema is parsed, so each distinct
// root value gets its own parsed schema, cached while the root is comparable.
type Schema struct {
	sdl    string
	root   any
	opts   []graphql.SchemaOpt
	logger *zap.Logger

	mu    sync.Mutex
	bound map[any]*graphql.Schema
	base  *graphql.Schema
}

// Option configures a Schema.
type Option func(*Schema)

// WithLogger sets the logger used for execution diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Schema) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSchemaOptions forwards options to graphql.ParseSchema.
func WithSchemaOptions(opts ...graphql.SchemaOpt) Option {
	return func(s *Schema) { s.opts = append(s.opts, opts...) }
}

// NewSchema parses sdl with root as the default root resolver. root may be
// nil for schemas that are only used for validation.
func NewSchema(sdl string, root any, opts ...Option) (*Schema, error) {
	s := &Schema{sdl: sdl, root: root, logger: zap.NewNop(), bound: map[any]*graphql.Schema{}}
	for _, o := range opts {
		o(s)
	}
	base, err := graphql.ParseSchema(sdl, root, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("execute: parse schema: %w", err)
	}
	s.base = base
	return s, nil
}

// MustSchema is like NewSchema but panics on error.
func MustSchema(sdl string, root any, opts ...Option) *Schema {
	s, err := NewSchema(sdl, root, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Wrap adapts an already parsed schema. Executions through it always use the
// resolver it was parsed with and reject a different root value.
func Wrap(s *graphql.Schema) *Schema {
	return &Schema{base: s, logger: zap.NewNop()}
}

// Raw returns the schema bound to the default root resolver.
func (s *Schema) Raw() *graphql.Schema { return s.base }

// For returns the schema bound to root. A nil root selects the default.
func (s *Schema) For(root any) (*graphql.Schema, error) {
	if root == nil {
		return s.base, nil
	}
	comparable := reflect.TypeOf(root).Comparable()
	if comparable && root == s.root {
		return s.base, nil
	}
	if s.sdl == "" {
		return nil, ErrFixedRoot
	}
	if comparable {
		s.mu.Lock()
		defer s.mu.Unlock()
		if b, ok := s.bound[root]; ok {
			return b, nil
		}
	}
	b, err := graphql.ParseSchema(s.sdl, root, s.opts...)
	if err != nil {
		return nil, fmt.Errorf("execute: bind root %T: %w", root, err)
	}
	if comparable {
		s.bound[root] = b
	}
	s.logger.Debug("bound schema to root value", zap.String("root", fmt.Sprintf("%T", root)))
	return b, nil
}
