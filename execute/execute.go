// Package execute runs typed documents against a graphql-go schema. The
// result and variables types of each call are taken from the document
// argument, so callers never spell them out.
package execute

import (
	"context"
	"errors"
	"fmt"
	"time"

	graphql "github.com/graph-gophers/graphql-go"
	qerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/hanpama/typeddoc"
	eventbus "github.com/hanpama/typeddoc/internal/eventbus"
	events "github.com/hanpama/typeddoc/internal/events"
	reqid "github.com/hanpama/typeddoc/internal/reqid"
	"go.uber.org/zap"
)

var (
	// ErrNotStream is returned by Subscribe for queries and mutations.
	ErrNotStream = errors.New("execute: document is not a subscription")
	// ErrFixedRoot is returned when a wrapped schema is asked for another root.
	ErrFixedRoot = errors.New("execute: schema was parsed with a fixed root resolver")
)

// ExecutionResult is the typed form of a graphql-go response.
type ExecutionResult[R, V any] struct {
	Data       *R
	Errors     []*qerrors.QueryError
	Extensions map[string]any
	// Variables echoes the variables the operation ran with.
	Variables V
}

// Err joins the result's errors, or returns nil.
func (r *ExecutionResult[R, V]) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// ExecuteArgs is the options-object form of Execute.
type ExecuteArgs[R, V any] struct {
	Schema   *Schema
	Document *typeddoc.Document[R, V]
	// RootValue overrides the schema's default root resolver.
	RootValue any
	Variables V
	// VariableValues, when non-nil, replaces Variables after being checked
	// against V exactly.
	VariableValues map[string]any
	OperationName  string
}

// Args starts an options-object call for doc, with R and V taken from doc.
func Args[R, V any](schema *Schema, doc *typeddoc.Document[R, V]) ExecuteArgs[R, V] {
	return ExecuteArgs[R, V]{Schema: schema, Document: doc}
}

// Execute runs doc against schema and decodes the response into R.
func Execute[R, V any](ctx context.Context, schema *Schema, doc *typeddoc.Document[R, V], rootValue any, variables V, operationName string) *ExecutionResult[R, V] {
	return ExecuteWithArgs(ctx, ExecuteArgs[R, V]{
		Schema:        schema,
		Document:      doc,
		RootValue:     rootValue,
		Variables:     variables,
		OperationName: operationName,
	})
}

// ExecuteWithArgs runs args.Document. Failures before execution, such as a
// variables mismatch, are reported in Errors like any other GraphQL error.
func ExecuteWithArgs[R, V any](ctx context.Context, args ExecuteArgs[R, V]) *ExecutionResult[R, V] {
	out := &ExecutionResult[R, V]{Variables: args.Variables}
	if args.Document == nil {
		out.Errors = fail(typeddoc.ErrEmptyDocument)
		return out
	}
	if args.VariableValues != nil {
		v, err := typeddoc.Bind[V](args.VariableValues)
		if err != nil {
			out.Errors = fail(err)
			return out
		}
		out.Variables = v
	}
	opName := args.OperationName
	if opName == "" {
		opName = args.Document.OperationName()
	}

	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		Transport:     "execute",
		OperationName: opName,
		OperationType: string(args.Document.Operation()),
		Query:         args.Document.Source(),
	})
	defer func() {
		eventbus.Publish(ctx, events.OperationFinish{
			Transport:     "execute",
			OperationName: opName,
			OperationType: string(args.Document.Operation()),
			Errors:        asErrors(out.Errors),
			Duration:      time.Since(start),
		})
	}()

	if args.Schema == nil {
		out.Errors = fail(errors.New("execute: nil schema"))
		return out
	}
	s, err := args.Schema.For(args.RootValue)
	if err != nil {
		out.Errors = fail(err)
		return out
	}
	vars, err := variablesFor(args.Variables, args.VariableValues)
	if err != nil {
		out.Errors = fail(err)
		return out
	}
	resp := s.Exec(ctx, args.Document.Source(), opName, vars)
	decode(out, resp)
	args.Schema.logger.Debug("executed operation",
		zap.String("operation", opName),
		zap.Int("errors", len(out.Errors)),
		zap.Duration("duration", time.Since(start)))
	return out
}

// Subscribe starts a subscription and delivers each event as a typed result.
// The channel closes when the source stream ends or ctx is cancelled.
func Subscribe[R, V any](ctx context.Context, schema *Schema, doc *typeddoc.Document[R, V], variables V) (<-chan *ExecutionResult[R, V], error) {
	if doc == nil {
		return nil, typeddoc.ErrEmptyDocument
	}
	if doc.Kind() != typeddoc.Stream {
		return nil, fmt.Errorf("%w: %s %q", ErrNotStream, doc.Operation(), doc.OperationName())
	}
	if schema == nil {
		return nil, errors.New("execute: nil schema")
	}
	vars, err := typeddoc.EncodeVariables(variables)
	if err != nil {
		return nil, err
	}
	ctx, _ = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{
		Transport:     "execute",
		OperationName: doc.OperationName(),
		OperationType: string(doc.Operation()),
		Query:         doc.Source(),
	})
	finish := func(errs []error) {
		eventbus.Publish(ctx, events.OperationFinish{
			Transport:     "execute",
			OperationName: doc.OperationName(),
			OperationType: string(doc.Operation()),
			Errors:        errs,
			Duration:      time.Since(start),
		})
	}
	src, err := schema.Raw().Subscribe(ctx, doc.Source(), doc.OperationName(), vars)
	if err != nil {
		err = fmt.Errorf("execute: subscribe: %w", err)
		finish([]error{err})
		return nil, err
	}
	out := make(chan *ExecutionResult[R, V])
	go func() {
		defer close(out)
		var errs []error
		defer func() { finish(errs) }()
		for item := range src {
			resp, ok := item.(*graphql.Response)
			if !ok {
				continue
			}
			res := &ExecutionResult[R, V]{Variables: variables}
			decode(res, resp)
			errs = append(errs, asErrors(res.Errors)...)
			select {
			case out <- res:
			case <-ctx.Done():
				// drain so the source goroutine can finish
				for range src {
				}
				return
			}
		}
	}()
	return out, nil
}

func variablesFor[V any](typed V, raw map[string]any) (map[string]any, error) {
	if raw != nil {
		return raw, nil
	}
	return typeddoc.EncodeVariables(typed)
}

func decode[R, V any](out *ExecutionResult[R, V], resp *graphql.Response) {
	out.Errors = append(out.Errors, resp.Errors...)
	out.Extensions = resp.Extensions
	data, err := typeddoc.DecodeResult[R](resp.Data)
	if err != nil {
		out.Errors = append(out.Errors, qerrors.Errorf("%s", err))
		return
	}
	out.Data = data
}

func fail(err error) []*qerrors.QueryError {
	return []*qerrors.QueryError{{Message: err.Error(), Err: err}}
}

func asErrors(qs []*qerrors.QueryError) []error {
	if len(qs) == 0 {
		return nil
	}
	out := make([]error, len(qs))
	for i, q := range qs {
		out[i] = q
	}
	return out
}
