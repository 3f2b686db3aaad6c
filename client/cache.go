package client

import (
	"context"
	"errors"

	"github.com/hanpama/typeddoc"
)

// ReadQuery returns the stored result of doc run with variables, or nil when
// the store holds none.
func ReadQuery[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, opts ...CallOption) (*R, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	q, err := prepare(doc, variables, newCallConfig(opts))
	if err != nil {
		return nil, err
	}
	return read[R](ctx, c.store, q.key)
}

// WriteQuery stores data so later cache reads of doc with the same variables
// return it.
func WriteQuery[R, V any](ctx context.Context, c *Client, doc *typeddoc.Document[R, V], variables V, data R) error {
	if c.store == nil {
		return ErrNoStore
	}
	q, err := prepare(doc, variables, callConfig{})
	if err != nil {
		return err
	}
	return write(ctx, c.store, q.key, data)
}

// ReadFragment returns the stored entity id as selected by frag, or nil when
// the store holds none.
func ReadFragment[R any](ctx context.Context, c *Client, frag *typeddoc.Fragment[R], id string) (*R, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	if frag == nil {
		return nil, typeddoc.ErrNoFragment
	}
	return read[R](ctx, c.store, FragmentKey(frag.Name(), id))
}

// WriteFragment stores data for the entity id.
func WriteFragment[R any](ctx context.Context, c *Client, frag *typeddoc.Fragment[R], id string, data R) error {
	if c.store == nil {
		return ErrNoStore
	}
	if frag == nil {
		return typeddoc.ErrNoFragment
	}
	return write(ctx, c.store, FragmentKey(frag.Name(), id), data)
}

func read[R any](ctx context.Context, s Store, key string) (*R, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return typeddoc.DecodeResult[R](raw)
}

func write(ctx context.Context, s Store, key string, data any) error {
	raw, err := codec.Marshal(data)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}
