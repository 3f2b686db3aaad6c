package client

import (
	"context"
	"errors"

	"github.com/hanpama/typeddoc"
	jsoniter "github.com/json-iterator/go"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// QueryResult is the typed outcome of a query.
type QueryResult[R, V any] struct {
	Data       *R
	Errors     gqlerror.List
	Extensions map[string]any
	// Variables echoes the variables the query ran with.
	Variables V
	// FromCache is set when Data came from the store.
	FromCache bool
}

// FetchResult is the typed outcome of a mutation.
type FetchResult[R any] struct {
	Data       *R
	Errors     gqlerror.List
	Extensions map[string]any
}

// Query runs doc with variables. When the server reports GraphQL errors the
// result still carries any partial data, and the returned error is its
// Errors.
func Query[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, opts ...CallOption) (*QueryResult[R, V], error) {
	cfg := newCallConfig(opts)
	q, err := prepare(doc, variables, cfg)
	if err != nil {
		return nil, err
	}
	if c.policyFor(cfg.policy) == CacheFirst {
		if res, ok := cached(ctx, c, q); ok {
			return res, nil
		}
	}
	return q.fetch(ctx, c)
}

// Mutate runs doc with variables. Results are never read from the store.
func Mutate[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, opts ...CallOption) (*FetchResult[R], error) {
	q, err := prepare(doc, variables, newCallConfig(opts))
	if err != nil {
		return nil, err
	}
	data, resp, err := c.send(ctx, q.doc, q.opName, q.vars)
	var gqlErrs gqlerror.List
	if err != nil && !errors.As(err, &gqlErrs) {
		return nil, err
	}
	out := &FetchResult[R]{Errors: resp.Errors, Extensions: resp.Extensions}
	if out.Data, err = typeddoc.DecodeResult[R](data); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return out, out.Errors
	}
	return out, nil
}

// prepared is a document with its variables resolved to wire form.
type prepared[R, V any] struct {
	doc    *typeddoc.Document[R, V]
	opName string
	vars   map[string]any
	typed  V
	key    string
}

func prepare[R, V any](doc *typeddoc.Document[R, V], typed V, cfg callConfig) (*prepared[R, V], error) {
	if doc == nil {
		return nil, typeddoc.ErrEmptyDocument
	}
	q := &prepared[R, V]{doc: doc, opName: cfg.opName, typed: typed}
	if q.opName == "" {
		q.opName = doc.OperationName()
	}
	var err error
	if cfg.raw != nil {
		if q.typed, err = typeddoc.Bind[V](cfg.raw); err != nil {
			return nil, err
		}
		q.vars = cfg.raw
	} else if q.vars, err = typeddoc.EncodeVariables(typed); err != nil {
		return nil, err
	}
	if q.key, err = QueryKey(doc, q.opName, q.vars); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *prepared[R, V]) fetch(ctx context.Context, c *Client) (*QueryResult[R, V], error) {
	data, resp, err := c.send(ctx, q.doc, q.opName, q.vars)
	var gqlErrs gqlerror.List
	if err != nil && !errors.As(err, &gqlErrs) {
		return nil, err
	}
	out := &QueryResult[R, V]{Errors: resp.Errors, Extensions: resp.Extensions, Variables: q.typed}
	if out.Data, err = typeddoc.DecodeResult[R](data); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return out, out.Errors
	}
	if out.Data != nil && c.store != nil {
		if err := c.store.Set(ctx, q.key, data); err != nil {
			c.logger.Warn("store write failed", zap.String("key", q.key), zap.Error(err))
		}
	}
	return out, nil
}

// cached reads q's result from the store. Store failures count as misses.
func cached[R, V any](ctx context.Context, c *Client, q *prepared[R, V]) (*QueryResult[R, V], bool) {
	if c.store == nil {
		return nil, false
	}
	raw, err := c.store.Get(ctx, q.key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("store read failed", zap.String("key", q.key), zap.Error(err))
		}
		return nil, false
	}
	data, err := typeddoc.DecodeResult[R](raw)
	if err != nil || data == nil {
		return nil, false
	}
	return &QueryResult[R, V]{Data: data, Variables: q.typed, FromCache: true}, true
}
